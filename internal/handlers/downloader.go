package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/convert-menu-bot/internal/router"
)

// ErrTooLarge lets the router answer an oversized download with the size message.
var ErrTooLarge = router.ErrUploadTooLarge

// Downloader fetches the bytes of a Telegram file. A limit <= 0 means no limit.
type Downloader interface {
	Download(ctx context.Context, fileID string, limit int64) ([]byte, error)
}

// FileAPI is the subset of *bot.Bot needed to resolve a file id to a URL.
type FileAPI interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

type TelegramDownloader struct {
	api    FileAPI
	client *http.Client
}

func NewTelegramDownloader(api FileAPI, client *http.Client) *TelegramDownloader {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &TelegramDownloader{api: api, client: client}
}

func (d *TelegramDownloader) Download(ctx context.Context, fileID string, limit int64) ([]byte, error) {
	file, err := d.api.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if limit > 0 && int64(file.FileSize) > limit {
		return nil, ErrTooLarge
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.api.FileDownloadLink(file), nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
