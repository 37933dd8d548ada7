package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/wyatts97/schedx/configs"
	"github.com/wyatts97/schedx/internal/transfer"
)

const (
	twitterAPIBase     = "https://api.twitter.com/2"
	twitterMediaUpload = "https://upload.twitter.com/1.1/media/upload.json"
)

// TweetMetrics is one tweet's public engagement counters as returned by the
// platform.
type TweetMetrics struct {
	Likes       int64
	Retweets    int64
	Replies     int64
	Impressions int64
}

// Publisher is the single-call publish surface the scheduler jobs depend on.
// Implementations classify failures through PublishError.
type Publisher interface {
	UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType string) (string, error)
	PostTweet(ctx context.Context, accessToken, body string, mediaIDs []string, replyToID string) (string, error)
	FetchMetrics(ctx context.Context, accessToken string, platformIDs []string) (map[string]TweetMetrics, error)
}

type twitterService struct {
	cfg    config.Config
	client *http.Client
}

func NewTwitterService(cfg config.Config) Publisher {
	return &twitterService{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *twitterService) PostTweet(ctx context.Context, accessToken, body string, mediaIDs []string, replyToID string) (string, error) {
	payload := transfer.TweetCreateRequest{Text: body}
	if len(mediaIDs) > 0 {
		payload.Media = &transfer.TweetMediaRef{MediaIDs: mediaIDs}
	}
	if replyToID != "" {
		payload.Reply = &transfer.TweetReplyRef{InReplyToTweetID: replyToID}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterAPIBase+"/tweets", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", newPublishError(resp.StatusCode, twitterErrorDetail(respBody))
	}

	var created transfer.TweetCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		slog.Info(err.Error())
		return "", &PublishError{Kind: ErrKindTransient, Message: "unreadable platform response"}
	}
	if created.Data.ID == "" {
		return "", &PublishError{Kind: ErrKindTransient, Message: "platform response missing tweet id"}
	}

	return created.Data.ID, nil
}

func (s *twitterService) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("media", "media")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.WriteField("media_category", mediaCategory(mimeType)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterMediaUpload, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", newPublishError(resp.StatusCode, twitterErrorDetail(respBody))
	}

	var uploaded transfer.MediaUploadResponse
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		slog.Info(err.Error())
		return "", &PublishError{Kind: ErrKindTransient, Message: "unreadable upload response"}
	}
	if uploaded.MediaIDString == "" {
		return "", &PublishError{Kind: ErrKindFatal, Message: "upload response missing media id"}
	}

	return uploaded.MediaIDString, nil
}

func (s *twitterService) FetchMetrics(ctx context.Context, accessToken string, platformIDs []string) (map[string]TweetMetrics, error) {
	params := url.Values{}
	params.Add("ids", strings.Join(platformIDs, ","))
	params.Add("tweet.fields", "public_metrics")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/tweets?%s", twitterAPIBase, params.Encode()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newPublishError(resp.StatusCode, twitterErrorDetail(respBody))
	}

	var metrics transfer.TweetMetricsResponse
	if err := json.Unmarshal(respBody, &metrics); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	result := make(map[string]TweetMetrics, len(metrics.Data))
	for _, d := range metrics.Data {
		result[d.ID] = TweetMetrics{
			Likes:       d.PublicMetrics.LikeCount,
			Retweets:    d.PublicMetrics.RetweetCount,
			Replies:     d.PublicMetrics.ReplyCount,
			Impressions: d.PublicMetrics.ImpressionCount,
		}
	}
	return result, nil
}

func mediaCategory(mimeType string) string {
	if strings.HasPrefix(mimeType, "video/") {
		return "tweet_video"
	}
	if mimeType == "image/gif" {
		return "tweet_gif"
	}
	return "tweet_image"
}

func twitterErrorDetail(body []byte) string {
	var e transfer.TwitterErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	return strings.TrimSpace(string(body))
}
