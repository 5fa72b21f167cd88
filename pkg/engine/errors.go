package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// Build-time failures. Any of these aborts the run before a single node
// executes; no partial graphs are ever scheduled.
var (
	ErrEmptyWorkflow  = errors.New("workflow has no nodes to execute")
	ErrCyclicWorkflow = errors.New("workflow contains a dependency cycle")
)

// InvalidNodeError reports a node that could not be constructed from its
// spec (unknown type, malformed config).
type InvalidNodeError struct {
	NodeID string
	Reason string
}

func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("invalid node '%s': %s", e.NodeID, e.Reason)
}
