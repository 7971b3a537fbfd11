// Package capture holds the backend-independent parts of device capture:
// exclusive device claims, backend composition and device resolution.
package capture

import (
	"fmt"
	"sync"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/ports"
)

// Claims records which session owns each open device. A device may be
// enumerated freely but opened by one owner at a time.
type Claims struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewClaims creates an empty claim registry.
func NewClaims() *Claims {
	return &Claims{owners: make(map[string]string)}
}

// Claim gives owner exclusive use of every descriptor, or none of them.
// Re-claiming a device the owner already holds succeeds.
func (c *Claims) Claim(owner string, descs ...ports.DeviceDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range descs {
		if held, ok := c.owners[d.Key()]; ok && held != owner {
			return apperr.Device(apperr.KindDeviceBusy, "claim", d.Name,
				fmt.Errorf("%s is in use by session %s", d.Key(), held))
		}
	}
	for _, d := range descs {
		c.owners[d.Key()] = owner
	}
	return nil
}

// Release drops every claim held by owner.
func (c *Claims) Release(owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, held := range c.owners {
		if held == owner {
			delete(c.owners, key)
		}
	}
}

// Owner returns the owner of a device, or "" if it is free.
func (c *Claims) Owner(desc ports.DeviceDescriptor) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owners[desc.Key()]
}
