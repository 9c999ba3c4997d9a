package cadence

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// SwapchainImage is one render target leased from a swapchain ring. The lease
// is transient: acquired, written, and released within a single frame-loop
// iteration, never held across frames.
//
// Target is nil for backends that expose timing without pixels (used by the
// lifecycle tests' scripted runtime).
type SwapchainImage struct {
	Index  int
	Target *ebiten.Image
}

// Swapchain is a fixed ring of render targets owned by a Session. Acquire and
// Release must pair exactly once per image per rendering iteration; the frame
// loop faults if an iteration ends with a lease still open.
type Swapchain struct {
	session   *Session
	rt        RuntimeSwapchain
	destroyed bool
}

// Extent returns the pixel size of every image in the ring.
func (sc *Swapchain) Extent() Extent2Di {
	return sc.rt.Extent()
}

// Acquire leases the next free image. Fails with ErrSwapchainExhausted when
// every image in the ring is already leased.
func (sc *Swapchain) Acquire() (*SwapchainImage, error) {
	img, err := sc.rt.Acquire()
	if err != nil {
		return nil, fmt.Errorf("acquire swapchain image: %w", err)
	}
	sc.session.openLeases++
	return img, nil
}

// Release returns a leased image to the ring. Releasing an image that is not
// currently leased is a misuse error.
func (sc *Swapchain) Release(img *SwapchainImage) error {
	if err := sc.rt.Release(img); err != nil {
		return fmt.Errorf("release swapchain image: %w", err)
	}
	sc.session.openLeases--
	return nil
}

func (sc *Swapchain) destroy() error {
	if sc.destroyed {
		return nil
	}
	sc.destroyed = true
	if err := sc.rt.Destroy(); err != nil {
		return fmt.Errorf("destroy swapchain: %w", err)
	}
	return nil
}
