package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"os/user"
	"strconv"
	"syscall"

	"github.com/srodi/ures/pkg/ures"
)

// lookupUser allows tests to stub NSS lookups.
var lookupUser = user.LookupId

// userCache remembers uid lookups; resolving a name may hit the network.
type userCache struct {
	names map[uint32]string
}

func newUserCache() *userCache {
	return &userCache{names: make(map[uint32]string)}
}

func (c *userCache) name(uid uint32) string {
	if name, ok := c.names[uid]; ok {
		return name
	}
	id := strconv.FormatUint(uint64(uid), 10)
	name := id
	if u, err := lookupUser(id); err == nil && u.Username != "" {
		name = u.Username
	}
	c.names[uid] = name
	return name
}

// classifyReadErr marks errors from reading a /proc/PID file with
// ErrProcessVanished when the process is gone.
func classifyReadErr(pid int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("pid %d: %w: %w", pid, ures.ErrProcessVanished, err)
	}
	return fmt.Errorf("pid %d: %w", pid, err)
}
