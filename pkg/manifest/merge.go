package manifest

import (
	"strings"

	"github.com/rkent/distroclone/pkg/errors"
	"github.com/rkent/distroclone/pkg/logging"
)

// Merge deep-merges override into base, mutating base in place.
//
// Keys absent from base are inserted verbatim; the override's subtree is
// shared, not copied. Keys holding mappings on both sides recurse. Keys
// holding values of the same concrete type are replaced by the override.
// A key holding different concrete types on each side is a conflict:
// with a non-nil sink the conflict is logged and the override wins,
// without one Merge fails with a MergeConflictError naming the dotted
// key path and both values.
func Merge(base, override *Value, sink logging.Sink) error {
	if _, err := base.Mapping(); err != nil {
		return err
	}
	if _, err := override.Mapping(); err != nil {
		return err
	}
	return mergeMapping(base, override, nil, sink)
}

func mergeMapping(base, override *Value, path []string, sink logging.Sink) error {
	for _, key := range override.Keys() {
		ov, _ := override.Get(key)
		bv, ok := base.Get(key)
		if !ok {
			base.Set(key, ov)
			continue
		}

		switch {
		case bv.Kind() == KindMapping && ov.Kind() == KindMapping:
			childPath := append(path[:len(path):len(path)], key)
			if err := mergeMapping(bv, ov, childPath, sink); err != nil {
				return err
			}
		case bv.sameType(ov):
			base.Set(key, ov)
		default:
			dotted := strings.Join(append(path[:len(path):len(path)], key), ".")
			if sink == nil {
				return &errors.MergeConflictError{
					Path:     dotted,
					Base:     bv.Interface(),
					Override: ov.Interface(),
				}
			}
			sink.Warnf("merge conflict at %s: %v vs %v, keeping override", dotted, bv.Interface(), ov.Interface())
			base.Set(key, ov)
		}
	}
	return nil
}
