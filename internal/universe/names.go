package universe

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"starbase-server/internal/resources"
)

var namePrefixes = []string{
	"Ceres", "Vesta", "Pallas", "Juno", "Hygiea", "Eros", "Ida", "Icarus",
	"Phaeton", "Toutatis", "Itokawa", "Bennu", "Ryugu", "Psyche", "Eunomia",
}

var poolLetters = map[resources.Pool]string{
	resources.PoolLow:     "c",
	resources.PoolMedium:  "m",
	resources.PoolHigh:    "r",
	resources.PoolExtreme: "x",
}

// generateName builds a display name that encodes value (base36), size class
// and the rarest pool on board, so a scan result is readable at a glance.
func generateName(rng *rand.Rand, size SizeClass, value int, rarest resources.Pool) string {
	prefix := namePrefixes[rng.Intn(len(namePrefixes))]
	sizeLetter := string(size[0])
	encoded := strings.ToUpper(strconv.FormatInt(int64(value), 36))

	return fmt.Sprintf("%s-%s%s%s", prefix, encoded, sizeLetter, poolLetters[rarest])
}
