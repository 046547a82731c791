package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// NewWorkerID builds a lease-owner identity for this process. The
// hostname-pid prefix keeps it recognizable in the claimed_by column; the
// random suffix keeps it unique when pids are recycled across restarts.
func NewWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), suffix)
}
