// Package session implements C3: persisting and restoring browser cookies
// and storage between runs, and detecting session expiry.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/redis/go-redis/v9"

	"jobscout/internal/logging/types"
	"jobscout/internal/xerrors"
)

// Cookie is the subset of cookie attributes this store round-trips; drivers
// that reject sameSite/httpOnly on restore are accommodated by dropping
// those two fields before replay (spec §4.3).
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
	SameSite string  `json:"same_site"`
}

// Data is the full on-disk session snapshot.
type Data struct {
	SavedAt        time.Time         `json:"saved_at"`
	CurrentURL     string            `json:"current_url"`
	Cookies        []Cookie          `json:"cookies"`
	LocalStorage   map[string]string `json:"local_storage"`
	SessionStorage map[string]string `json:"session_storage"`
	UserAgent      string            `json:"user_agent"`
	WindowSize     string            `json:"window_size"`
}

// Store persists and restores Data on disk, optionally mirrored to Redis
// for deployments that share session state across processes.
type Store struct {
	defaultPath string
	ttl         time.Duration
	redis       *redis.Client
	logger      types.Logger
}

// New builds a Store. redisClient may be nil to disable the mirror.
func New(defaultPath string, ttl time.Duration, redisClient *redis.Client, logger types.Logger) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{defaultPath: defaultPath, ttl: ttl, redis: redisClient, logger: logger}
}

func (s *Store) resolvePath(path string) string {
	if path == "" {
		return s.defaultPath
	}
	return path
}

// Save atomically writes data as JSON: write to a tempfile in the same
// directory, then rename, so the file is never partially observable.
func (s *Store) Save(data *Data, path string) error {
	path = s.resolvePath(path)
	data.SavedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.NewStorageError("create session directory", err)
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return xerrors.NewStorageError("marshal session data", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*.tmp")
	if err != nil {
		return xerrors.NewStorageError("create temp session file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return xerrors.NewStorageError("write temp session file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return xerrors.NewStorageError("close temp session file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return xerrors.NewStorageError("rename temp session file into place", err)
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.redis.Set(ctx, redisKey(path), payload, s.ttl).Err(); err != nil {
			s.logger.Warn("failed to mirror session to redis", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

func redisKey(path string) string { return "jobscout:session:" + path }

// Load reads the file, rejecting it as expired (wall-clock, not cookie
// expiry) when the TTL has elapsed. Returns (nil, nil) when absent or expired.
func (s *Store) Load(path string) (*Data, error) {
	path = s.resolvePath(path)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.NewStorageError("read session file", err)
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, xerrors.NewStorageError("unmarshal session file", err)
	}
	if time.Since(data.SavedAt) > s.ttl {
		s.logger.Info("session expired by TTL", map[string]interface{}{"path": path, "saved_at": data.SavedAt})
		return nil, nil
	}
	return &data, nil
}

// ApplyToBrowser navigates to the origin of data.CurrentURL (to make cookie
// domains legal), clears and re-adds every cookie, restores local/session
// storage by scripted injection, then navigates to the recorded URL.
func (s *Store) ApplyToBrowser(page *rod.Page, data *Data) error {
	origin, err := originOf(data.CurrentURL)
	if err != nil {
		return xerrors.NewStorageError("parse session origin", err)
	}
	if err := page.Navigate(origin); err != nil {
		return xerrors.NewStorageError("navigate to session origin", err)
	}
	if err := page.WaitLoad(); err != nil {
		s.logger.Warn("origin page did not report load complete", map[string]interface{}{"error": err.Error()})
	}

	if err := page.Browser().SetCookies(nil); err != nil {
		s.logger.Warn("failed to clear existing cookies", map[string]interface{}{"error": err.Error()})
	}

	params := make([]*proto.NetworkCookieParam, 0, len(data.Cookies))
	for _, c := range data.Cookies {
		p := &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		}
		if c.Expires > 0 {
			p.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		// sameSite/httpOnly are deliberately dropped: some drivers reject
		// them on restore (spec §4.3).
		params = append(params, p)
	}
	if len(params) > 0 {
		if err := page.SetCookies(params); err != nil {
			return xerrors.NewStorageError("set cookies", err)
		}
	}

	if err := restoreStorage(page, "localStorage", data.LocalStorage); err != nil {
		s.logger.Warn("failed to restore localStorage", map[string]interface{}{"error": err.Error()})
	}
	if err := restoreStorage(page, "sessionStorage", data.SessionStorage); err != nil {
		s.logger.Warn("failed to restore sessionStorage", map[string]interface{}{"error": err.Error()})
	}

	if err := page.Navigate(data.CurrentURL); err != nil {
		return xerrors.NewStorageError("navigate to saved URL", err)
	}
	return nil
}

func restoreStorage(page *rod.Page, storageName string, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	js := fmt.Sprintf(`(entries) => {
		for (const [k, v] of entries) { window.%s.setItem(k, v); }
	}`, storageName)
	entries := make([][2]string, 0, len(kv))
	for k, v := range kv {
		entries = append(entries, [2]string{k, v})
	}
	return rod.Try(func() { page.MustEval(js, entries) })
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}

// IsValid inspects the DOM for any of the configured "logged-in" CSS
// indicators. The check never navigates, so the current page is preserved.
func (s *Store) IsValid(page *rod.Page, indicators []string) bool {
	for _, sel := range indicators {
		if sel == "" {
			continue
		}
		found := false
		_ = rod.Try(func() {
			el, err := page.Timeout(2 * time.Second).Element(sel)
			found = err == nil && el != nil
		})
		if found {
			return true
		}
	}
	return false
}

// ListSessions lists session files in dir (those matching *.json).
func (s *Store) ListSessions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.NewStorageError("list sessions", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Delete removes a session file.
func (s *Store) Delete(path string) error {
	path = s.resolvePath(path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return xerrors.NewStorageError("delete session file", err)
	}
	return nil
}

// Info reports size and modification time without fully loading the file.
func (s *Store) Info(path string) (os.FileInfo, error) {
	path = s.resolvePath(path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, xerrors.NewStorageError("stat session file", err)
	}
	return info, nil
}
