package editor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"
)

func solidFrame(index, w, h int) Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(index)
	}
	return Frame{Index: index, Image: img}
}

func TestEncodeFrame_Trailer(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.RGBA{R: 1, G: 2, B: 3, A: 4})
	data := EncodeFrame(Frame{Image: img})

	if len(data) != 3*4*2+TrailerSize {
		t.Fatalf("expected %d bytes, got %d", 3*4*2+TrailerSize, len(data))
	}
	trailer := data[len(data)-TrailerSize:]
	if got := binary.LittleEndian.Uint32(trailer[0:]); got != 12 {
		t.Errorf("stride = %d, want 12", got)
	}
	if got := binary.LittleEndian.Uint32(trailer[4:]); got != 2 {
		t.Errorf("height = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(trailer[8:]); got != 3 {
		t.Errorf("width = %d, want 3", got)
	}

	back, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if !bytes.Equal(back.Pix, img.Pix) {
		t.Error("decoded pixels differ")
	}
	if back.RGBAAt(2, 1) != (color.RGBA{R: 1, G: 2, B: 3, A: 4}) {
		t.Errorf("unexpected pixel %v", back.RGBAAt(2, 1))
	}
}

func TestDecodeFrame_Malformed(t *testing.T) {
	if _, err := DecodeFrame([]byte{1, 2, 3}); err == nil {
		t.Error("expected an error for a truncated frame")
	}
	data := EncodeFrame(solidFrame(1, 4, 4))
	if _, err := DecodeFrame(data[4:]); err == nil {
		t.Error("expected an error when the pixel data does not match the trailer")
	}
}

func TestToRGBA_SubImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	src.Set(5, 5, color.RGBA{R: 200, A: 255})
	sub := src.SubImage(image.Rect(4, 4, 8, 8))

	out := toRGBA(sub)
	if out.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Fatalf("expected bounds at the origin, got %v", out.Bounds())
	}
	if out.RGBAAt(1, 1).R != 200 {
		t.Errorf("expected the sub-image pixel at (1,1), got %v", out.RGBAAt(1, 1))
	}
	if len(EncodeFrame(Frame{Image: out})) != 4*4*4+TrailerSize {
		t.Error("unexpected encoded size")
	}
}

func TestStreamHub_DropsOldest(t *testing.T) {
	hub := NewStreamHub(2)
	sub := hub.Subscribe()
	for i := 0; i < 5; i++ {
		hub.Publish(solidFrame(i, 2, 2))
	}

	ctx := context.Background()
	for _, want := range []int{3, 4} {
		f, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if f.Index != want {
			t.Errorf("expected frame %d, got %d", want, f.Index)
		}
	}
	if got := sub.Dropped(); got != 3 {
		t.Errorf("expected 3 dropped frames, got %d", got)
	}
}

func TestStreamHub_SlowConsumerDoesNotBlockOthers(t *testing.T) {
	hub := NewStreamHub(1)
	slow := hub.Subscribe()
	fast := hub.Subscribe()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		hub.Publish(solidFrame(i, 1, 1))
		f, err := fast.Next(ctx)
		if err != nil || f.Index != i {
			t.Fatalf("fast consumer: frame %d, err %v", f.Index, err)
		}
	}
	if fast.Dropped() != 0 {
		t.Errorf("fast consumer dropped %d frames", fast.Dropped())
	}
	if slow.Dropped() != 9 {
		t.Errorf("expected slow consumer to drop 9 frames, got %d", slow.Dropped())
	}
	f, _ := slow.Next(ctx)
	if f.Index != 9 {
		t.Errorf("expected slow consumer to get the newest frame, got %d", f.Index)
	}
}

func TestStreamHub_LateSubscriberGetsLatest(t *testing.T) {
	hub := NewStreamHub(4)
	hub.Publish(solidFrame(1, 1, 1))
	hub.Publish(solidFrame(2, 1, 1))

	sub := hub.Subscribe()
	f, err := sub.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if f.Index != 2 {
		t.Errorf("expected the latest frame, got %d", f.Index)
	}
	if latest, ok := hub.Latest(); !ok || latest.Index != 2 {
		t.Errorf("Latest = %d, %v", latest.Index, ok)
	}
}

func TestStreamHub_NextBlocksUntilPublish(t *testing.T) {
	hub := NewStreamHub(4)
	sub := hub.Subscribe()

	got := make(chan int, 1)
	go func() {
		f, err := sub.Next(context.Background())
		if err == nil {
			got <- f.Index
		}
	}()
	time.Sleep(10 * time.Millisecond)
	hub.Publish(solidFrame(7, 1, 1))

	select {
	case idx := <-got:
		if idx != 7 {
			t.Errorf("expected frame 7, got %d", idx)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Publish")
	}
}

func TestStreamHub_Close(t *testing.T) {
	hub := NewStreamHub(4)
	sub := hub.Subscribe()
	hub.Publish(solidFrame(1, 1, 1))
	hub.Close()

	if _, err := sub.Next(context.Background()); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("expected ErrStreamClosed, got %v", err)
	}
	late := hub.Subscribe()
	if _, err := late.Next(context.Background()); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("expected ErrStreamClosed after close, got %v", err)
	}
	hub.Publish(solidFrame(2, 1, 1))
	hub.Close()
	sub.Close()
}

func TestSubscriber_CloseAndContext(t *testing.T) {
	hub := NewStreamHub(4)
	sub := hub.Subscribe()
	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := sub.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}

	sub.Close()
	sub.Close()
	if hub.Subscribers() != 0 {
		t.Errorf("expected no subscribers, got %d", hub.Subscribers())
	}
	if _, err := sub.Next(context.Background()); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("expected ErrStreamClosed, got %v", err)
	}
}
