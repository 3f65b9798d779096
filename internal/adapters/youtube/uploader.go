// Package youtube uploads finished videos with the YouTube Data API.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"story-automation/internal/automation"
)

const (
	// DefaultPrivacy is the privacy status of uploaded videos.
	DefaultPrivacy = "public"

	categoryPeopleAndBlogs = "22"
	defaultLanguage        = "ar"
)

// Credentials authorise uploads on behalf of the channel owner.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Uploader implements automation.Uploader.
type Uploader struct {
	svc     *youtube.Service
	privacy string
	log     *slog.Logger
}

// New returns an Uploader that refreshes access tokens from creds.
func New(ctx context.Context, creds Credentials, privacy string, log *slog.Logger) (*Uploader, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return nil, errors.New("youtube client id, client secret and refresh token are required")
	}
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	svc, err := youtube.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return NewWithService(svc, privacy, log), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *youtube.Service, privacy string, log *slog.Logger) *Uploader {
	if privacy == "" {
		privacy = DefaultPrivacy
	}
	return &Uploader{svc: svc, privacy: privacy, log: log}
}

// Upload inserts the video and then sets its thumbnail. A thumbnail failure
// is logged only: the video is already published at that point.
func (u *Uploader) Upload(ctx context.Context, req automation.UploadRequest) (string, error) {
	f, err := os.Open(req.VideoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:           req.Title,
			Description:     req.Description,
			Tags:            req.Tags,
			CategoryId:      categoryPeopleAndBlogs,
			DefaultLanguage: defaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: u.privacy,
		},
	}

	started := time.Now()
	resp, err := u.svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	if resp.Id == "" {
		return "", errors.New("upload response has no video id")
	}
	u.log.Info("video uploaded",
		slog.String("video_id", resp.Id),
		slog.String("privacy", u.privacy),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))

	if req.ThumbnailPath != "" {
		if err := u.setThumbnail(ctx, resp.Id, req.ThumbnailPath); err != nil {
			u.log.Warn("set thumbnail failed", slog.String("video_id", resp.Id), slog.String("error", err.Error()))
		}
	}
	return resp.Id, nil
}

func (u *Uploader) setThumbnail(ctx context.Context, videoID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = u.svc.Thumbnails.Set(videoID).Media(f).Context(ctx).Do()
	return err
}
