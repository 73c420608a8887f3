package domain

import "fmt"

// Backend identifies a registered worker by the pair it announced:
// the address the registration connection arrived from, and the port
// it asked to be reached on. Immutable once created.
type Backend struct {
	Address string
	Port    int
}

func (b Backend) String() string {
	return fmt.Sprintf("%s:%d", b.Address, b.Port)
}

// Mode selects which scheduling policy a client handshake requests.
type Mode string

const (
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
)

// ParseMode validates a mode token from a handshake or admin command.
// Callers are expected to lowercase s first; ok is false for anything
// other than "static"/"dynamic".
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeStatic, ModeDynamic:
		return Mode(s), true
	default:
		return "", false
	}
}

// LiveClient is one entry of a backend's periodic client report.
// Supplied wholesale by the backend; never mutated in place.
type LiveClient struct {
	Name       string
	IP         string
	ReportedAt int64 // epoch milliseconds
}

// ClientRecord is one entry of the assignment log: a record of who the
// balancer directed where, not who is currently connected.
type ClientRecord struct {
	ClientName string
	Mode       Mode
	AssignedAt int64 // epoch milliseconds
	Backend    Backend
	Remote     string
}
