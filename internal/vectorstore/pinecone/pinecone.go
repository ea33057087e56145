package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

const apiVersion = "2024-07"

// Storage talks to a serverless Pinecone index over REST. The control plane is used
// to find (or create) the index and its data-plane host; vectors are keyed by file name.
type Storage struct {
	controlURL string
	apiKey     string
	index      string
	metric     string
	cloud      string
	region     string
	namespace  string
	client     *http.Client

	mu   sync.RWMutex
	host string

	readyPoll time.Duration
	readyWait time.Duration
}

type Config struct {
	APIKey     string
	ControlURL string
	// Host skips index discovery and creation when set.
	Host      string
	Index     string
	Metric    string
	Cloud     string
	Region    string
	Namespace string
	Timeout   time.Duration
}

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("pinecone: missing API key")
	}
	if cfg.Index == "" {
		return nil, errors.New("pinecone: index name required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	s := &Storage{
		controlURL: strings.TrimRight(cfg.ControlURL, "/"),
		apiKey:     cfg.APIKey,
		index:      cfg.Index,
		metric:     cfg.Metric,
		cloud:      cfg.Cloud,
		region:     cfg.Region,
		namespace:  cfg.Namespace,
		client:     &http.Client{Timeout: timeout},
		readyPoll:  2 * time.Second,
		readyWait:  2 * time.Minute,
	}
	if s.controlURL == "" {
		s.controlURL = "https://api.pinecone.io"
	}
	if s.metric == "" {
		s.metric = "cosine"
	}
	if cfg.Host != "" {
		s.host = normalizeHost(cfg.Host)
	}
	return s, nil
}

func normalizeHost(h string) string {
	h = strings.TrimRight(h, "/")
	if !strings.HasPrefix(h, "http://") && !strings.HasPrefix(h, "https://") {
		h = "https://" + h
	}
	return h
}

// Init resolves the index host, creating the index with the given dimension when it does not exist.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if s.dataHost() != "" {
		// A configured host is used as is; the dimension is still checked when the
		// control plane can describe the index.
		if _, body, err := s.do(ctx, http.MethodGet, s.controlURL+"/indexes/"+s.index, nil); err == nil {
			return checkDimension(s.index, body, dimension)
		}
		return nil
	}

	status, body, err := s.do(ctx, http.MethodGet, s.controlURL+"/indexes/"+s.index, nil)
	if err != nil && status != http.StatusNotFound {
		return err
	}
	if status == http.StatusNotFound {
		create := map[string]any{
			"name":      s.index,
			"dimension": dimension,
			"metric":    s.metric,
			"spec": map[string]any{
				"serverless": map[string]any{"cloud": s.cloud, "region": s.region},
			},
		}
		status, body, err = s.do(ctx, http.MethodPost, s.controlURL+"/indexes", create)
		// 409: created concurrently by another process
		if err != nil && status != http.StatusConflict {
			return fmt.Errorf("create index %s: %w", s.index, err)
		}
		if status == http.StatusConflict {
			if _, body, err = s.do(ctx, http.MethodGet, s.controlURL+"/indexes/"+s.index, nil); err != nil {
				return err
			}
		}
	}

	if err := checkDimension(s.index, body, dimension); err != nil {
		return err
	}
	if !gjson.GetBytes(body, "status.ready").Bool() {
		if body, err = s.waitReady(ctx); err != nil {
			return err
		}
	}
	host := gjson.GetBytes(body, "host").String()
	if host == "" {
		return fmt.Errorf("index %s: no host in describe response", s.index)
	}
	s.mu.Lock()
	s.host = normalizeHost(host)
	s.mu.Unlock()
	return nil
}

func checkDimension(index string, body []byte, dimension int) error {
	if d := gjson.GetBytes(body, "dimension"); d.Exists() && int(d.Int()) != dimension {
		return fmt.Errorf("index %s has dimension %d, embedder produces %d", index, d.Int(), dimension)
	}
	return nil
}

func (s *Storage) waitReady(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(s.readyWait)
	for {
		_, body, err := s.do(ctx, http.MethodGet, s.controlURL+"/indexes/"+s.index, nil)
		if err != nil {
			return nil, err
		}
		if gjson.GetBytes(body, "status.ready").Bool() {
			return body, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("index %s not ready after %s", s.index, s.readyWait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.readyPoll):
		}
	}
}

func (s *Storage) dataHost() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.host
}

func (s *Storage) dataURL(path string) (string, error) {
	h := s.dataHost()
	if h == "" {
		return "", errors.New("pinecone: storage not initialised")
	}
	return h + path, nil
}

type vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	url, err := s.dataURL("/vectors/upsert")
	if err != nil {
		return err
	}
	vectors := make([]vector, len(records))
	for i, r := range records {
		if r.FileName == "" {
			return errors.New("record without file name")
		}
		vectors[i] = vector{ID: r.FileName, Values: r.Vector, Metadata: map[string]string{"file_name": r.FileName}}
	}
	body := map[string]any{"vectors": vectors}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	_, _, err = s.do(ctx, http.MethodPost, url, body)
	return err
}

func (s *Storage) Query(ctx context.Context, vec []float32, topK int) ([]domain.Match, error) {
	url, err := s.dataURL("/query")
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	body := map[string]any{
		"vector":          vec,
		"topK":            topK,
		"includeMetadata": true,
		"includeValues":   false,
	}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	_, resp, err := s.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	var matches []domain.Match
	gjson.GetBytes(resp, "matches").ForEach(func(_, m gjson.Result) bool {
		matches = append(matches, domain.Match{FileName: m.Get("id").String(), Score: m.Get("score").Float()})
		return true
	})
	return vectorstore.TopK(matches, topK), nil
}

func (s *Storage) Clear(ctx context.Context) error {
	url, err := s.dataURL("/vectors/delete")
	if err != nil {
		return err
	}
	body := map[string]any{"deleteAll": true}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	status, _, err := s.do(ctx, http.MethodPost, url, body)
	// deleting from an empty namespace answers 404
	if status == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *Storage) do(ctx context.Context, method, url string, body any) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if resp.StatusCode >= 300 {
		msg := gjson.GetBytes(payload, "error.message").String()
		if msg == "" {
			msg = gjson.GetBytes(payload, "message").String()
		}
		if msg == "" {
			msg = strings.TrimSpace(string(payload))
		}
		return resp.StatusCode, payload, fmt.Errorf("pinecone %s %s failed: %s: %s", method, url, resp.Status, msg)
	}
	return resp.StatusCode, payload, nil
}
