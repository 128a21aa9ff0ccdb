package uid

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/oklog/ulid/v2"
)

const (
	DefaultMachineID = 1
	callPrefix       = "call_"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init pins the snowflake node used for message ids.
// Only the first call has effect.
func Init(machineID int64) {
	once.Do(func() {
		var err error
		node, err = snowflake.NewNode(machineID)
		if err != nil {
			log.Fatalf("failed to initialize snowflake node: %v", err)
		}
	})
}

// Generate returns a time-ordered id for persisted messages.
func Generate() string {
	Init(DefaultMachineID)
	return node.Generate().String()
}

// NewCallID returns a unique, lexically sortable call id.
func NewCallID() string {
	return callPrefix + ulid.Make().String()
}

// NewHandle returns an opaque connection handle.
func NewHandle() string {
	return uuid.NewString()
}
