package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bookshelf/bookshelf/config"
	"github.com/bookshelf/bookshelf/logger"
	"github.com/bookshelf/bookshelf/util/common"
	"github.com/bookshelf/bookshelf/web/entity"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

type googleVolumes struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo googleVolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type googleVolumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories"`
	ImageLinks    struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
	} `json:"imageLinks"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
}

// MetadataService looks books up in the Google Books volumes API.
type MetadataService struct {
	client     *fasthttp.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxResults int
}

func NewMetadataService(cfg config.GoogleBooksConfig) *MetadataService {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &MetadataService{
		client: &fasthttp.Client{
			Name:         config.GetName() + "/" + config.GetVersion(),
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		maxResults: maxResults,
	}
}

func (s *MetadataService) volumesURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(s.maxResults))
	if s.apiKey != "" {
		params.Set("key", s.apiKey)
	}
	return s.baseURL + "/volumes?" + params.Encode()
}

func upstreamError(err error) error {
	return common.WrapError(common.ErrUpstream, err, "errors.upstream", "Detail=="+err.Error())
}

// Search queries the volumes API once, without retries. The request is bounded by the
// configured timeout or the context deadline, whichever comes first.
func (s *MetadataService) Search(ctx context.Context, query string) (*entity.MetadataResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.NewError(common.ErrValidation, "errors.emptyQuery")
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if err := ctx.Err(); err != nil || timeout <= 0 {
		if err == nil {
			err = context.DeadlineExceeded
		}
		return nil, upstreamError(err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.volumesURL(query))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			logger.Warningf("google books lookup timed out after %s", timeout)
		} else {
			logger.Warning("google books lookup failed:", err)
		}
		return nil, upstreamError(err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, upstreamError(fmt.Errorf("status %d", code))
	}

	var volumes googleVolumes
	if err := json.Unmarshal(resp.Body(), &volumes); err != nil {
		return nil, upstreamError(fmt.Errorf("decode response: %w", err))
	}

	result := &entity.MetadataResult{
		Success:    true,
		TotalItems: volumes.TotalItems,
		Books:      make([]entity.MetadataBook, 0, len(volumes.Items)),
	}
	for _, item := range volumes.Items {
		result.Books = append(result.Books, normalizeVolume(&item.VolumeInfo))
	}
	return result, nil
}

func normalizeVolume(v *googleVolumeInfo) entity.MetadataBook {
	thumbnail := v.ImageLinks.Thumbnail
	if thumbnail == "" {
		thumbnail = v.ImageLinks.SmallThumbnail
	}
	thumbnail = strings.Replace(thumbnail, "http://", "https://", 1)

	return entity.MetadataBook{
		Title:         v.Title,
		Author:        strings.Join(v.Authors, ", "),
		Year:          publishedYear(v.PublishedDate),
		Description:   v.Description,
		Genre:         strings.Join(v.Categories, ", "),
		Thumbnail:     thumbnail,
		CoverImageURL: thumbnail,
		Publisher:     v.Publisher,
		ISBN:          isbn(v),
	}
}

// publishedYear takes the part of the date before the first '-' when it is four digits.
func publishedYear(date string) *int {
	part, _, _ := strings.Cut(date, "-")
	if len(part) != 4 {
		return nil
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return nil
		}
	}
	year, _ := strconv.Atoi(part)
	return &year
}

func isbn(v *googleVolumeInfo) string {
	var isbn10 string
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			if isbn10 == "" {
				isbn10 = id.Identifier
			}
		}
	}
	return isbn10
}
