package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/phanxgames/danmaku"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newLoader(t *testing.T, opts Options) *Loader {
	t.Helper()
	l, err := NewLoader(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(l.Close)
	return l
}

var red = color.RGBA{R: 255, A: 255}

func TestLoadDataURI(t *testing.T) {
	l := newLoader(t, Options{AvatarSize: 16, ImageSize: 12})
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 8, 8, red))

	img, err := l.Load(context.Background(), ref, danmaku.AssetImage)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 12 {
		t.Errorf("image bounds = %v, want 12x12", b)
	}

	img, err = l.Load(context.Background(), ref, danmaku.AssetAvatar)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 16 {
		t.Errorf("avatar bounds = %v, want 16x16", b)
	}
}

func TestLoadMalformedDataURI(t *testing.T) {
	l := newLoader(t, Options{})
	if _, err := l.Load(context.Background(), "data:image/png;base64", danmaku.AssetImage); err == nil {
		t.Error("data URI without payload accepted")
	}
	if _, err := l.Load(context.Background(), "data:,not-an-image", danmaku.AssetImage); err == nil {
		t.Error("undecodable payload accepted")
	}
}

func TestLoadResource(t *testing.T) {
	fsys := fstest.MapFS{
		"ic_red_packet.png": {Data: pngBytes(t, 4, 4, red)},
		"avatars/a.png":     {Data: pngBytes(t, 6, 4, red)},
	}
	l := newLoader(t, Options{Resources: fsys})

	if _, err := l.Load(context.Background(), "ic_red_packet", danmaku.AssetImage); err != nil {
		t.Errorf("resource name: %v", err)
	}
	if _, err := l.Load(context.Background(), "avatars/a.png", danmaku.AssetAvatar); err != nil {
		t.Errorf("resource path: %v", err)
	}
	if _, err := l.Load(context.Background(), "ic_missing", danmaku.AssetImage); err == nil {
		t.Error("missing resource loaded")
	}
}

func TestLoadResourceWithoutFS(t *testing.T) {
	l := newLoader(t, Options{})
	_, err := l.Load(context.Background(), "ic_red_packet", danmaku.AssetImage)
	if !errors.Is(err, ErrNoResourceFS) {
		t.Errorf("err = %v, want ErrNoResourceFS", err)
	}
}

func TestLoadHTTPSharesAndCaches(t *testing.T) {
	body := pngBytes(t, 10, 10, red)
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer srv.Close()

	l := newLoader(t, Options{Client: srv.Client()})
	ref := srv.URL + "/avatar.png"

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background(), ref, danmaku.AssetAvatar)
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	if _, err := l.Load(context.Background(), ref, danmaku.AssetAvatar); err != nil {
		t.Fatal(err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestLoadHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	l := newLoader(t, Options{Client: srv.Client()})
	if _, err := l.Load(context.Background(), srv.URL+"/x.png", danmaku.AssetImage); err == nil {
		t.Error("404 accepted")
	}
}

func TestLoadTooLarge(t *testing.T) {
	body := pngBytes(t, 32, 32, red)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	l := newLoader(t, Options{Client: srv.Client(), MaxBytes: 16})
	_, err := l.Load(context.Background(), srv.URL+"/big.png", danmaku.AssetImage)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestLoadAfterClose(t *testing.T) {
	l := newLoader(t, Options{})
	l.Close()
	_, err := l.Load(context.Background(), "ic_red_packet", danmaku.AssetImage)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestResolveCallsBack(t *testing.T) {
	fsys := fstest.MapFS{"ic_red_packet.png": {Data: pngBytes(t, 4, 4, red)}}
	l := newLoader(t, Options{Resources: fsys})

	type result struct {
		bmp danmaku.Bitmap
		err error
	}
	ch := make(chan result, 2)
	l.Resolve("ic_red_packet", danmaku.AssetImage, func(b danmaku.Bitmap, err error) { ch <- result{b, err} })
	l.Resolve("ic_nope", danmaku.AssetImage, func(b danmaku.Bitmap, err error) { ch <- result{b, err} })

	var ok, failed int
	for i := 0; i < 2; i++ {
		select {
		case r := <-ch:
			if r.err != nil {
				if r.bmp != nil {
					t.Error("failed load returned a bitmap")
				}
				failed++
			} else {
				ok++
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Resolve never called back")
		}
	}
	if ok != 1 || failed != 1 {
		t.Errorf("ok = %d, failed = %d", ok, failed)
	}
}

func TestLoaderDrivesEngine(t *testing.T) {
	fsys := fstest.MapFS{
		"ic_red_packet.png": {Data: pngBytes(t, 4, 4, red)},
		"me.png":            {Data: pngBytes(t, 4, 4, red)},
	}
	l := newLoader(t, Options{Resources: fsys})
	e, err := danmaku.NewEngine(danmaku.DefaultConfig(), nil, l)
	if err != nil {
		t.Fatal(err)
	}
	p := e.AddItem(danmaku.Item{Avatar: "me.png", Body: "hi", Image: "ic_red_packet"})

	deadline := time.Now().Add(5 * time.Second)
	for (p.Avatar == nil || p.Image == nil) && time.Now().Before(deadline) {
		e.Tick(0)
		time.Sleep(time.Millisecond)
	}
	if p.Avatar == nil || p.Image == nil {
		t.Fatalf("bitmaps not applied: avatar %v, image %v", p.Avatar != nil, p.Image != nil)
	}
}
