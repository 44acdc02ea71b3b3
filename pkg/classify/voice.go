package classify

// VoiceSettings tune downstream speech synthesis for an emotion.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// VoiceSettingsFor maps an emotion label to synthesis settings. Unknown
// labels get the neutral midpoint.
func VoiceSettingsFor(emotion string) VoiceSettings {
	s := VoiceSettings{Stability: 0.5, SimilarityBoost: 0.5, Style: 0.5}

	switch emotion {
	case "joy":
		s.Stability, s.SimilarityBoost, s.Style = 0.8, 0.7, 0.9
	case "excitement":
		s.Stability, s.SimilarityBoost, s.Style = 0.8, 0.6, 0.9
	case "contentment":
		s.Stability, s.SimilarityBoost, s.Style = 0.8, 0.7, 0.8
	case "neutral":
		s.Stability, s.SimilarityBoost, s.Style = 0.25, 0.8, 0.3
	case "annoyance":
		s.Stability, s.SimilarityBoost, s.Style = 0.2, 0.5, 0.8
	case "sadness":
		s.Stability, s.SimilarityBoost, s.Style = 0.1, 0.5, 1.0
	case "anger":
		s.Stability, s.SimilarityBoost, s.Style = 0.2, 0.4, 0.9
	case "despair":
		s.Stability, s.SimilarityBoost, s.Style = 0.3, 0.5, 0.9
	}

	return s
}
