package commentary

import (
	"fmt"
	"strings"

	"face-score/internal/faceapi"
)

func describe(f faceapi.Face) string {
	who := "a mysterious cat"
	switch strings.ToLower(f.Gender()) {
	case "male":
		who = "a handsome guy"
	case "female":
		who = "a pretty lady"
	}

	var moods []string
	for _, e := range f.TopEmotions(2) {
		moods = append(moods, fmt.Sprintf("%s (%.1f%%)", e.Name, e.Value))
	}
	mood := "unknown"
	if len(moods) > 0 {
		mood = strings.Join(moods, ", ")
	}

	expr := "a calm expression"
	if f.Smile() > 50 {
		expr = "a bright smile"
	}

	a := f.Attributes
	return fmt.Sprintf(
		"Detected %s, about %d years old, beauty score %.1f, wearing %s. "+
			"Face quality %.2f, blur %.2f, main emotions %s. "+
			"Head pose yaw %.1f, pitch %.1f, roll %.1f. "+
			"Skin health %.1f, stains %.1f, dark circles %.1f, acne %.1f.",
		who, f.Age(), f.Score(), expr,
		a.FaceQuality.Value, f.Blur(), mood,
		a.HeadPose.Yaw, a.HeadPose.Pitch, a.HeadPose.Roll,
		a.SkinStatus.Health, a.SkinStatus.Stain, a.SkinStatus.DarkCircle, a.SkinStatus.Acne,
	)
}

// ScorePrompt asks for a short witty comment on the face.
func ScorePrompt(f faceapi.Face) string {
	return describe(f) + " Write a playful 20 to 50 word comment about this person's looks. " +
		"Do not repeat the numbers; use vivid, funny metaphors that make people smile and want to share it."
}

// FortunePrompt asks for a short temperament reading.
func FortunePrompt(f faceapi.Face) string {
	return describe(f) + " As an experienced aesthetics and personality analyst, write a " +
		"temperament report of about 100 words covering first impression, personality charm " +
		"and social appeal. Keep it warm and positive, and do not repeat the numbers."
}
