package handler

import (
	"encoding/json"
	"time"

	"github.com/starfall/server/internal/wire"
)

// CargoCollect starts a channelled pickup; validation failures come back as
// cargo_box_collect_status frames with a reason code.
func CargoCollect(deps *Deps) wire.HandlerFunc {
	return func(s wire.Sender, raw []byte) error {
		sess, run, p, err := playerOf(s)
		if err != nil {
			return err
		}
		var msg wire.CargoBoxCollect
		if err := json.Unmarshal(raw, &msg); err != nil {
			return wire.Errorf(wire.CodeValidationFailed, "malformed cargo_box_collect")
		}
		if msg.BoxID == "" {
			return wire.Errorf(wire.CodeValidationFailed, "missing boxId")
		}
		if werr := run.Cargo.Collect(run.Map, p, msg.BoxID, time.Now()); werr != nil {
			sess.Send(&wire.CargoBoxCollectStatus{
				Type:   wire.TypeCargoBoxCollectStatus,
				BoxID:  msg.BoxID,
				Status: "failed",
				Reason: werr.Code,
			})
		}
		return nil
	}
}
