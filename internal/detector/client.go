package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-registry/internal/similarity"
)

const (
	defaultDetectorURL = "http://localhost:8000"

	// DefaultMinConfidence is the detection score below which faces are dropped.
	DefaultMinConfidence = 0.5

	// DefaultMaxImageSide bounds the longer side of uploaded images.
	DefaultMaxImageSide = 2048
)

// Client detects faces and computes their embeddings using the embedding server.
type Client struct {
	baseURL       string
	minConfidence float64
	maxImageSide  int
	client        *http.Client
}

// NewClient creates a new detector client. maxImageSide <= 0 disables downscaling.
func NewClient(baseURL string, minConfidence float64, maxImageSide int) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		minConfidence: minConfidence,
		maxImageSide:  maxImageSide,
		client:        &http.Client{},
	}
}

// faceDetection is a single face in the server response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the response of the /embed/face endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// postMultipartImage posts the image with an explicit Content-Type part header
// plus the min_confidence form field.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, mimeType string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	h.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.WriteField("min_confidence", strconv.FormatFloat(c.minConfidence, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrDetectorFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrDetectorFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API error (status %d): %s", ErrDetectorFailed, resp.StatusCode, string(body))
	}

	return body, nil
}

// Detect validates the image, sends it to the server and returns the detected
// faces in detector order. An image without faces yields an empty slice.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]Face, error) {
	info, err := InspectImage(imageData)
	if err != nil {
		return nil, err
	}

	payload, sc, err := fitImage(imageData, info, c.maxImageSide)
	if err != nil {
		return nil, err
	}
	mimeType := "image/" + info.Format
	if sc != identityScale {
		mimeType = "image/jpeg"
	}

	body, err := c.postMultipartImage(ctx, "/embed/face", payload, mimeType)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrDetectorFailed, err)
	}

	faces := make([]Face, 0, len(faceResp.Faces))
	for i, fd := range faceResp.Faces {
		if len(fd.Embedding) == 0 {
			return nil, fmt.Errorf("%w: face %d has an empty embedding", ErrDetectorFailed, i)
		}
		if fd.Dim != 0 && fd.Dim != len(fd.Embedding) {
			return nil, fmt.Errorf("%w: face %d reports dim %d but carries %d values",
				ErrDetectorFailed, i, fd.Dim, len(fd.Embedding))
		}
		faces = append(faces, Face{
			Index:      i,
			BBox:       toBBox(fd.BBox, sc),
			Confidence: fd.DetScore,
			Embedding:  similarity.Vector(fd.Embedding),
		})
	}
	return faces, nil
}

// toBBox rounds [x1, y1, x2, y2] to integer pixels of the original image.
func toBBox(raw []float64, sc scale) BBox {
	if len(raw) < 4 {
		return BBox{}
	}
	return BBox{
		X1: int(math.Round(raw[0] * sc.x)),
		Y1: int(math.Round(raw[1] * sc.y)),
		X2: int(math.Round(raw[2] * sc.x)),
		Y2: int(math.Round(raw[3] * sc.y)),
	}
}

// Health checks whether the embedding server answers on /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", ErrDetectorFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", ErrDetectorFailed, resp.StatusCode)
	}
	return nil
}
