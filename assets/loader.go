// Package assets resolves avatar and image references for the danmaku
// engine. A Loader fetches http(s) URLs, decodes data: URIs and reads named
// resources from an fs.FS, shapes the result for its slot and caches it.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/phanxgames/danmaku"
)

var (
	// ErrNoResourceFS is returned for resource references when the loader
	// has no FS to read them from.
	ErrNoResourceFS = errors.New("assets: no resource filesystem")
	// ErrTooLarge is returned when a payload exceeds Options.MaxBytes.
	ErrTooLarge = errors.New("assets: payload too large")
	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("assets: loader closed")
)

// resourcePrefix marks bundled resource names such as "ic_red_packet",
// which resolve to "<name>.png" in the resource FS.
const resourcePrefix = "ic_"

// Options configures a Loader. Zero fields take defaults.
type Options struct {
	// Client fetches http(s) references. Defaults to a client with a 10s
	// timeout.
	Client *http.Client
	// Resources serves resource names and relative paths.
	Resources fs.FS
	// AvatarSize and ImageSize are the pixel edges bitmaps are scaled to.
	// Defaults come from danmaku.DefaultConfig.
	AvatarSize int
	ImageSize  int
	// CacheSize is the number of shaped bitmaps kept. Default 256.
	CacheSize int
	// RequestsPerSecond and Burst limit remote fetches. Default 8/s, burst 4.
	RequestsPerSecond float64
	Burst             int
	// MaxBytes caps a single payload. Default 4 MiB.
	MaxBytes int64
	Logger   *slog.Logger
}

type cacheKey struct {
	ref  string
	kind danmaku.AssetKind
}

// Loader implements danmaku.AssetBridge. Concurrent requests for the same
// reference and kind share one fetch.
type Loader struct {
	client    *http.Client
	resources fs.FS
	avatar    int
	image     int
	maxBytes  int64
	log       *slog.Logger

	group   singleflight.Group
	cache   *lru.Cache[cacheKey, image.Image]
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLoader creates a Loader from opts.
func NewLoader(opts Options) (*Loader, error) {
	def := danmaku.DefaultConfig()
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.AvatarSize <= 0 {
		opts.AvatarSize = int(def.AvatarSize)
	}
	if opts.ImageSize <= 0 {
		opts.ImageSize = int(def.ImageSize)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 8
	}
	if opts.Burst <= 0 {
		opts.Burst = 4
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 4 << 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	cache, err := lru.New[cacheKey, image.Image](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("assets: cache: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		client:    opts.Client,
		resources: opts.Resources,
		avatar:    opts.AvatarSize,
		image:     opts.ImageSize,
		maxBytes:  opts.MaxBytes,
		log:       opts.Logger.With(slog.String("component", "assets")),
		cache:     cache,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Resolve implements danmaku.AssetBridge. It never blocks: the load runs on
// its own goroutine and done is called from there.
func (l *Loader) Resolve(ref string, kind danmaku.AssetKind, done func(danmaku.Bitmap, error)) {
	go func() {
		img, err := l.Load(l.ctx, ref, kind)
		if err != nil {
			done(nil, err)
			return
		}
		done(img, nil)
	}()
}

// Load fetches, decodes and shapes ref for kind, consulting the cache first.
func (l *Loader) Load(ctx context.Context, ref string, kind danmaku.AssetKind) (image.Image, error) {
	if l.ctx.Err() != nil {
		return nil, ErrClosed
	}
	key := cacheKey{ref: ref, kind: kind}
	if img, ok := l.cache.Get(key); ok {
		return img, nil
	}

	v, err, shared := l.group.Do(kind.String()+"\x00"+ref, func() (any, error) {
		data, err := l.fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		src, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("assets: decode %s: %w", describe(ref), err)
		}
		var out image.Image
		switch kind {
		case danmaku.AssetAvatar:
			out = CircleAvatar(src, l.avatar)
		default:
			out = Fit(src, l.image)
		}
		l.cache.Add(key, out)
		l.log.Debug("asset loaded",
			slog.String("kind", kind.String()),
			slog.String("ref", describe(ref)),
			slog.String("format", format),
			slog.Int("bytes", len(data)))
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.log.Debug("asset load shared", slog.String("ref", describe(ref)))
	}
	return v.(image.Image), nil
}

// Close cancels in-flight fetches. Later loads fail with ErrClosed.
func (l *Loader) Close() {
	l.cancel()
}

func (l *Loader) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return l.decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, resourcePrefix) && path.Ext(ref) == "":
		return l.readResource(ref + ".png")
	default:
		return l.readResource(ref)
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("assets: rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("assets: request %s: %w", ref, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assets: fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assets: fetch %s: status %s", ref, resp.Status)
	}
	return l.readLimited(resp.Body)
}

func (l *Loader) readResource(name string) ([]byte, error) {
	if l.resources == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResourceFS, name)
	}
	f, err := l.resources.Open(path.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("assets: open %s: %w", name, err)
	}
	defer f.Close()
	return l.readLimited(f)
}

// decodeDataURI accepts "data:[<mime>][;base64],<payload>".
func (l *Loader) decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("assets: malformed data URI")
	}
	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		var err error
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("assets: data URI: %w", err)
		}
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("assets: data URI: %w", err)
		}
		data = []byte(s)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("assets: read: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// describe shortens data URIs for logs and errors.
func describe(ref string) string {
	if strings.HasPrefix(ref, "data:") && len(ref) > 32 {
		return ref[:32] + "..."
	}
	return ref
}
