package tts

import "github.com/hammamikhairi/ottospeak/internal/domain"

// Legacy voice target.
const (
	DefaultLanguageTag = "zh-CN"
	DefaultVoiceName   = "Microsoft Kangkang - Chinese (Simplified, PRC)"
)

// VoiceMatcher selects a voice from an engine's directory. An empty field
// matches any value.
type VoiceMatcher struct {
	LanguageTag string
	DisplayName string
	// LanguageFallback picks the first voice with LanguageTag when no voice
	// carries DisplayName.
	LanguageFallback bool
}

// DefaultVoiceMatcher returns the exact zh-CN Kangkang matcher without
// fallback.
func DefaultVoiceMatcher() VoiceMatcher {
	return VoiceMatcher{
		LanguageTag: DefaultLanguageTag,
		DisplayName: DefaultVoiceName,
	}
}

// Match returns the first voice satisfying m. When none does it returns a
// *domain.VoiceNotFoundError.
func (m VoiceMatcher) Match(voices []domain.Voice) (domain.Voice, error) {
	for _, v := range voices {
		if m.languageOK(v) && (m.DisplayName == "" || v.DisplayName == m.DisplayName) {
			return v, nil
		}
	}
	if m.LanguageFallback && m.LanguageTag != "" {
		for _, v := range voices {
			if m.languageOK(v) {
				return v, nil
			}
		}
	}

	name := m.DisplayName
	if name == "" {
		name = m.LanguageTag
	}
	return domain.Voice{}, &domain.VoiceNotFoundError{Name: name, LanguageTag: m.LanguageTag}
}

func (m VoiceMatcher) languageOK(v domain.Voice) bool {
	return m.LanguageTag == "" || v.LanguageTag == m.LanguageTag
}
