package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"time"
)

const returnAttributes = "gender,age,smiling,headpose,facequality,blur,emotion,ethnicity,beauty,skinstatus"

var (
	ErrNoFace        = errors.New("no face detected")
	ErrTimeout       = errors.New("face analysis timed out")
	ErrNotConfigured = errors.New("face analysis is not configured")
)

// UpstreamError is a non-2xx answer from the analysis provider.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("face analysis failed (%d): %s", e.Status, e.Message)
}

type Client struct {
	key    string
	secret string
	url    string
	http   *http.Client
}

func New(key, secret, url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		key:    key,
		secret: secret,
		url:    url,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Configured() bool {
	return c.key != "" && c.secret != "" && c.url != ""
}

type detectResponse struct {
	Faces        []Face `json:"faces"`
	ErrorMessage string `json:"error_message"`
}

// Detect posts a base64 image (without data URL prefix) and returns the
// detected faces. Zero faces is reported as ErrNoFace.
func (c *Client) Detect(ctx context.Context, imageBase64 string) ([]Face, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{
		{"api_key", c.key},
		{"api_secret", c.secret},
		{"image_base64", imageBase64},
		{"return_attributes", returnAttributes},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}

	var out detectResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.ErrorMessage
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &UpstreamError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: "malformed response"}
	}
	if len(out.Faces) == 0 {
		return nil, ErrNoFace
	}
	return out.Faces, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
