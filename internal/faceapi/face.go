package faceapi

import (
	"sort"
	"strings"
)

type valueAttr struct {
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold,omitempty"`
}

type Beauty struct {
	MaleScore   float64 `json:"male_score"`
	FemaleScore float64 `json:"female_score"`
}

type HeadPose struct {
	Yaw   float64 `json:"yaw_angle"`
	Pitch float64 `json:"pitch_angle"`
	Roll  float64 `json:"roll_angle"`
}

type SkinStatus struct {
	Health     float64 `json:"health"`
	Stain      float64 `json:"stain"`
	DarkCircle float64 `json:"dark_circle"`
	Acne       float64 `json:"acne"`
}

type Attributes struct {
	Gender struct {
		Value string `json:"value"`
	} `json:"gender"`
	Age struct {
		Value int `json:"value"`
	} `json:"age"`
	Beauty      Beauty             `json:"beauty"`
	Smile       valueAttr          `json:"smile"`
	FaceQuality valueAttr          `json:"facequality"`
	HeadPose    HeadPose           `json:"headpose"`
	Emotion     map[string]float64 `json:"emotion"`
	SkinStatus  SkinStatus         `json:"skinstatus"`
	Blur        struct {
		Blurness valueAttr `json:"blurness"`
	} `json:"blur"`
	Ethnicity struct {
		Value string `json:"value"`
	} `json:"ethnicity"`
}

// Face is one detected face with the attributes the service asks for.
type Face struct {
	Token      string     `json:"face_token"`
	Attributes Attributes `json:"attributes"`
}

func (f Face) Gender() string { return f.Attributes.Gender.Value }
func (f Face) Age() int       { return f.Attributes.Age.Value }
func (f Face) Smile() float64 { return f.Attributes.Smile.Value }
func (f Face) Blur() float64  { return f.Attributes.Blur.Blurness.Value }

// Score is the beauty score for the detected gender, clamped to [0, 100].
func (f Face) Score() float64 {
	b := f.Attributes.Beauty
	var s float64
	switch strings.ToLower(f.Gender()) {
	case "male":
		s = b.MaleScore
	case "female":
		s = b.FemaleScore
	default:
		s = (b.MaleScore + b.FemaleScore) / 2
	}
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// Emotion is a single emotion and its confidence in percent.
type Emotion struct {
	Name  string
	Value float64
}

// TopEmotions returns the n strongest emotions, strongest first.
func (f Face) TopEmotions(n int) []Emotion {
	out := make([]Emotion, 0, len(f.Attributes.Emotion))
	for k, v := range f.Attributes.Emotion {
		out = append(out, Emotion{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value == out[j].Value {
			return out[i].Name < out[j].Name
		}
		return out[i].Value > out[j].Value
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
