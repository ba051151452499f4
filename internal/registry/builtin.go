package registry

import "github.com/hszk-dev/mediarelay/internal/domain/model"

// Google Drive object IDs for the museum stories.
var (
	builtinVideos = [][2]string{
		{"v1", "1sb0XpXiCPme3ySx7pMi3HUXFGf2WIxyv"},
		{"v2", "1e7OqD1Z3WOmgGMPYqeB6bWf4QQG0snZa"},
		{"v3", "1teO5_DhnsxJXZY_FG5sEDKezuEddLNL6"},
		{"v4", "12SEbwZb_5Lr9r953CB41P1EnYSTHkoMk"},
		{"v5", "1mLxbi7-WKUeZXjgPsXpYMxJqjKKA8Sx1"},
		{"v6", "1OnlEuqx5PaNz_f--EEW3-U_K_NJgVExX"},
		{"v7", "1ZiHmxHdhTNPy-tV_i1e-xkfGQs_atBLH"},
		{"v8", "1AmTbc3umf8CTDvpfugEUtZvXgRWcsMNH"},
		{"v9", "1HPorkRFgpxX8cSw19DAMmMyDj8h9Ap2I"},
		{"v10", "1pK1ZgiRU-RZNyvV7hBRz33mreM3TUm6o"},
	}

	builtinEnglishAudio = [][2]string{
		{"a1", "1zZdYVF7fV-wmZJNX-mx6dKwmYgkXQ4lz"},
		{"a2", "11qMlpdX6DIUU2u3fEuuCBK1ybEeOhaYS"},
		{"a3", "1aKXbdSXE_tBndajoOy3vdmXkIWTAuDur"},
		{"a4", "1ykUlS3onJPywtYZUGXpT3K03glKaaMT9"},
		{"a5", "1_opE1hdTYIcHoX1c6z77j9Rj3zQofRiK"},
		{"a6", "1KAWkgBaW-V_G96wlLrZqRUyXp6EaRQri"},
		{"a7", "14y8lHFMOKu006AkrX6NQOdBG-2X6KJbd"},
		{"a8", "1OItHEk_ifpdtQZpwV_1D8ofk_tAKWtbR"},
		{"a9", "1MAAM0zbPF_lUTmtlPSNt4kQbRR8Yi0BD"},
		{"a10", "1S7tH9f5czKtt5OxiIv3z6g2lDJ5FypXG"},
	}

	builtinHindiAudio = [][2]string{
		{"a1", "1t3lKj_6qtWh36-RP_mGj8ky0zgLdcgup"},
		{"a2", "19wpgdYgBM_3IkFfxVJqmfOk666S2eJGi"},
		{"a3", "1jLxF2LaSfAmaaMCCZlMkuj0kkJOB5iyT"},
		{"a4", "1H_DfN0BcR_O1MaJ5RPuwkE6MnspJF786"},
		{"a5", "1QJDiTeKQMx9st_2_r3SlfooyYZVw-cJJ"},
		{"a6", "1D2ybzk5KfJhGT8duHWGCPSaWi6iHO-9x"},
		{"a7", "1OommMYu7bUbY2FiigkrtM_j52-IQDQjn"},
		{"a8", "1_ySVU_1RjL2HvxCAc4lyOPK1p74g5uaS"},
		{"a9", "1-W85-eaAfyqAPfq0P2x0Cjj3omBpSzao"},
		{"a10", "1yanHsobVMvMKTmpkR0CGQqdjfMcz3qcI"},
	}
)

// BuiltinEntries returns the compiled-in media table.
func BuiltinEntries() []model.MediaEntry {
	var out []model.MediaEntry
	add := func(kind model.Kind, rows [][2]string) {
		for _, row := range rows {
			out = append(out, model.MediaEntry{Kind: kind, ShortID: row[0], UpstreamObjectID: row[1]})
		}
	}
	add(model.KindVideo, builtinVideos)
	add(model.KindEnglishAudio, builtinEnglishAudio)
	add(model.KindHindiAudio, builtinHindiAudio)
	return out
}

// Builtin returns a Registry over the compiled-in table.
func Builtin() *Registry {
	r, err := New(BuiltinEntries())
	if err != nil {
		panic("registry: invalid builtin table: " + err.Error())
	}
	return r
}
