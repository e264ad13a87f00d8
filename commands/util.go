package commands

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// parseTriple reads "x,y,z" into three integers.
func parseTriple(s string) ([3]int, error) {
	var res [3]int

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return res, errors.Newf("expected x,y,z, got %q", s)
	}

	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return res, errors.Wrapf(err, "component %d of %q", i, s)
		}
		res[i] = v
	}
	return res, nil
}

func tripleKey(key string) ([3]int, error) {
	v, err := parseTriple(settings.GetString(key))
	if err != nil {
		return v, errors.Wrap(err, key)
	}
	return v, nil
}
