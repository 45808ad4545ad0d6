package ingest

import (
	"strings"

	"github.com/capitoldata/congress-mirror/model"
)

// InferChamber derives a committee's chamber from its system code prefix and
// name tokens when the upstream payload leaves it out. The rule set is
// deterministic; callers rely on the store's merge-only semantics so an
// Unknown result never regresses a previously resolved value.
func InferChamber(systemCode, name string) model.Chamber {
	code := strings.ToLower(systemCode)
	switch {
	case strings.HasPrefix(code, "h"):
		return model.ChamberHouse
	case strings.HasPrefix(code, "s"):
		return model.ChamberSenate
	case strings.HasPrefix(code, "j"):
		return model.ChamberJoint
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "joint"):
		return model.ChamberJoint
	case strings.Contains(lower, "house"):
		return model.ChamberHouse
	case strings.Contains(lower, "senate"):
		return model.ChamberSenate
	}
	return model.ChamberUnknown
}
