package crash

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/armon/circbuf"
	"go.uber.org/zap"
)

const (
	sessionTrailBytes = 16 * 1024
	globalTrailBytes  = 64 * 1024
)

// Reporter keeps bounded event trails per session plus a global trail, and
// writes a structured dump when a panic is reported. It is process-wide and
// safe for concurrent use; writers hold the lock only long enough to append
// to a ring.
type Reporter struct {
	mu       sync.Mutex
	global   *circbuf.Buffer
	sessions map[string]*circbuf.Buffer
	dir      string
	log      *zap.Logger
}

// NewReporter creates a reporter writing dump files under dir. The directory
// is created on first dump, not up front.
func NewReporter(dir string, log *zap.Logger) *Reporter {
	global, _ := circbuf.NewBuffer(globalTrailBytes)
	return &Reporter{
		global:   global,
		sessions: make(map[string]*circbuf.Buffer),
		dir:      dir,
		log:      log,
	}
}

// event is one breadcrumb line in a trail.
type event struct {
	At      int64  `json:"at"`
	Session string `json:"session,omitempty"`
	Kind    string `json:"kind"`
	Detail  string `json:"detail,omitempty"`
}

// Record appends a breadcrumb to the session's trail and the global trail.
// Old entries fall off the ring; nothing here can block gameplay.
func (r *Reporter) Record(sessionID, kind, detail string) {
	line, err := json.Marshal(event{
		At:      time.Now().UnixMilli(),
		Session: sessionID,
		Kind:    kind,
		Detail:  detail,
	})
	if err != nil {
		return
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	r.global.Write(line)
	if sessionID != "" {
		buf := r.sessions[sessionID]
		if buf == nil {
			buf, _ = circbuf.NewBuffer(sessionTrailBytes)
			r.sessions[sessionID] = buf
		}
		buf.Write(line)
	}
}

// DropSession releases a disconnected session's trail.
func (r *Reporter) DropSession(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// ReportPanic writes a dump file with the panic value, stack, and the most
// recent trail bytes, then returns — the caller has already recovered and
// the server stays alive.
func (r *Reporter) ReportPanic(where string, recovered any, stack []byte) {
	r.mu.Lock()
	trail := r.global.Bytes()
	r.mu.Unlock()

	dump := struct {
		At    string `json:"at"`
		Where string `json:"where"`
		Panic string `json:"panic"`
		Stack string `json:"stack"`
		Trail string `json:"trail"`
	}{
		At:    time.Now().UTC().Format(time.RFC3339Nano),
		Where: where,
		Panic: fmt.Sprint(recovered),
		Stack: string(stack),
		Trail: string(trail),
	}
	body, err := json.MarshalIndent(&dump, "", "  ")
	if err != nil {
		r.log.Error("marshal crash dump", zap.Error(err))
		return
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		r.log.Error("create crash dir", zap.Error(err))
		return
	}
	name := fmt.Sprintf("crash-%d.json", time.Now().UnixNano())
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		r.log.Error("write crash dump", zap.Error(err))
		return
	}
	r.log.Error("panic reported",
		zap.String("where", where),
		zap.String("dump", path))
}

// SessionTrail returns a copy of a session's trail, for diagnostics.
func (r *Reporter) SessionTrail(sessionID string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := r.sessions[sessionID]
	if buf == nil {
		return nil
	}
	return append([]byte(nil), buf.Bytes()...)
}
