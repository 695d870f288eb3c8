package lifecycle

import (
	"strconv"
	"strings"
)

// BaselineVersion is the lineage root stamped on the very first cold-trained
// model.
const BaselineVersion = "logistic_v1"

// bumpVersion increments the trailing version number: logistic_v3 ->
// logistic_v4. A malformed version string fails soft to the bumped baseline
// instead of aborting the retrain.
func bumpVersion(current string) string {
	idx := strings.LastIndex(current, "v")
	if idx >= 0 {
		if num, err := strconv.Atoi(current[idx+1:]); err == nil {
			return current[:idx+1] + strconv.Itoa(num+1)
		}
	}
	return "logistic_v2"
}
