package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"whatsapp-bridge/config"
)

// MediaService resolves and downloads media attachments through the Graph
// API. Downloading is a two-step dance: the media ID resolves to a short-lived
// URL, which is then fetched with the same Bearer token.
type MediaService struct {
	baseURL     string
	apiVersion  string
	accessToken string
	infoClient  httpDoer
	dataClient  httpDoer
	logger      *zap.SugaredLogger
}

// MediaInfo is the metadata Meta returns for a media ID.
type MediaInfo struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Sha256   string `json:"sha256"`
	FileSize int64  `json:"file_size"`
}

func NewMediaService(cfg *config.Config, logger *zap.SugaredLogger) *MediaService {
	wa := cfg.WhatsApp
	return &MediaService{
		baseURL:     wa.GraphBaseURL,
		apiVersion:  wa.APIVersion,
		accessToken: wa.AccessToken,
		infoClient:  newDefaultHTTPClient(),
		dataClient:  newHTTPClientWithTimeout(mediaHTTPTimeout),
		logger:      logger,
	}
}

// Info fetches the download URL and MIME type for a media ID.
func (s *MediaService) Info(ctx context.Context, mediaID string) (*MediaInfo, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return nil, fmt.Errorf("media id is required")
	}

	endpoint := fmt.Sprintf("%s/%s/%s", s.baseURL, s.apiVersion, mediaID)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create media info request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+s.accessToken)

	response, err := s.infoClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("call media info api: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read media info response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, buildGraphAPIError(response.StatusCode, body)
	}

	var info MediaInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode media info response: %w", err)
	}
	if info.URL == "" || info.MimeType == "" {
		return nil, fmt.Errorf("media info for %s missing url or mime_type", mediaID)
	}

	return &info, nil
}

// Download fetches the media bytes from the URL returned by Info.
func (s *MediaService) Download(ctx context.Context, downloadURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create media download request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+s.accessToken)

	response, err := s.dataClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return nil, buildGraphAPIError(response.StatusCode, body)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read media body: %w", err)
	}
	return data, nil
}

// DataURL resolves a media ID all the way to a base64 data URL suitable for a
// multimodal chat-completion part.
func (s *MediaService) DataURL(ctx context.Context, mediaID string) (string, error) {
	info, err := s.Info(ctx, mediaID)
	if err != nil {
		return "", err
	}

	data, err := s.Download(ctx, info.URL)
	if err != nil {
		return "", err
	}

	s.logger.Debugw("media downloaded", "media_id", mediaID, "mime_type", info.MimeType, "bytes", len(data))
	return EncodeDataURL(info.MimeType, data), nil
}

// EncodeDataURL renders bytes as a data:{mime};base64,{payload} URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
