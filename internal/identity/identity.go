// Package identity derives the (user, vehicle) pair a telemetry file belongs
// to and the stable ids of the trips cut from it.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

// Identity is the owner of every trip in one file.
type Identity struct {
	UserID        int64
	VehicleNumber string
}

const (
	maxHashedUserID = 1000
	maxTripID       = 100000
	plateSeedSalt   = 0x7e1a_b0c5
)

var (
	plateInFilename = regexp.MustCompile(`(?i)([A-Z]{2})(\d{2})([A-Z]{2})(\d{4})`)
	disallowedPlate = regexp.MustCompile(`[^A-Za-z0-9\s-]`)
	plateSeparators = regexp.MustCompile(`[\s-]+`)

	// Filename id patterns, tried in order. The single-letter forms must
	// start a word so that "run12" does not read as user 12.
	userIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)user[_-]?(\d+)`),
		regexp.MustCompile(`(?i)driver[_-]?(\d+)`),
		regexp.MustCompile(`(?i)(?:^|[^a-z])u(\d+)`),
		regexp.MustCompile(`(?i)(?:^|[^a-z])d(\d+)`),
	}

	stateCodes = []string{"MP", "MH", "DL", "KA", "TN", "UP", "GJ", "RJ", "WB", "AP"}
)

// NormalizeVehicleNumber uppercases s, drops everything but letters, digits,
// spaces and dashes, and joins the remaining blocks with single dashes.
// "mp09 ab1234" becomes "MP09-AB1234". The function is idempotent.
func NormalizeVehicleNumber(s string) string {
	s = disallowedPlate.ReplaceAllString(s, "")
	s = strings.ToUpper(strings.TrimSpace(s))
	var blocks []string
	for _, b := range plateSeparators.Split(s, -1) {
		if b != "" {
			blocks = append(blocks, b)
		}
	}
	return strings.Join(blocks, "-")
}

// PlateFromFilename looks for a registration plate embedded in a file name.
func PlateFromFilename(filename string) (string, bool) {
	m := plateInFilename.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1] + m[2] + "-" + m[3] + m[4]), true
}

// GeneratePlate returns a plausible plate derived only from userID, so the
// same user always receives the same plate.
func GeneratePlate(userID int64) string {
	r := rand.New(rand.NewPCG(uint64(userID), plateSeedSalt))
	state := stateCodes[r.IntN(len(stateCodes))]
	district := r.IntN(99) + 1
	series := string([]byte{byte('A' + r.IntN(26)), byte('A' + r.IntN(26))})
	number := 1000 + r.IntN(9000)
	return fmt.Sprintf("%s%02d-%s%d", state, district, series, number)
}

// ResolveUserID returns the first numeric value of the user_id column, then
// an id from the file name, then a hash of the file name folded into
// [1, 1000]. A zero or negative column value is returned as is and left to
// trip validation.
func ResolveUserID(t *telemetry.Table, filename string) int64 {
	for _, v := range t.Floats(telemetry.UserID) {
		if !math.IsNaN(v) && v > math.MinInt64 && v < math.MaxInt64 {
			return int64(v)
		}
	}
	base := filepath.Base(filename)
	for _, re := range userIDPatterns {
		if m := re.FindStringSubmatch(base); m != nil {
			if id, err := strconv.ParseInt(m[1], 10, 64); err == nil && id > 0 {
				return id
			}
		}
	}
	return hashFold(base, maxHashedUserID)
}

// ResolveVehicleNumber returns the first non-blank vehicle_number cell,
// then a plate found in the file name, then a plate generated from userID.
// The result is always normalized.
func ResolveVehicleNumber(t *telemetry.Table, filename string, userID int64) string {
	for _, v := range t.Strings(telemetry.VehicleNumber) {
		if n := NormalizeVehicleNumber(v); n != "" {
			return n
		}
	}
	if p, ok := PlateFromFilename(filename); ok {
		return NormalizeVehicleNumber(p)
	}
	return GeneratePlate(userID)
}

// Resolve derives the identity of a file.
func Resolve(t *telemetry.Table, filename string) Identity {
	uid := ResolveUserID(t, filename)
	return Identity{UserID: uid, VehicleNumber: ResolveVehicleNumber(t, filename, uid)}
}

// TripID returns a stable id in [1, 100000] for the index-th trip of a file.
func TripID(filename string, index int, userID int64) int64 {
	return hashFold(fmt.Sprintf("%s_%d_%d", filepath.Base(filename), index, userID), maxTripID)
}

// hashFold maps s onto [1, n] using the first 32 bits of its MD5 digest.
func hashFold(s string, n int64) int64 {
	sum := md5.Sum([]byte(s))
	v, _ := strconv.ParseUint(hex.EncodeToString(sum[:4]), 16, 64)
	return int64(v%uint64(n)) + 1
}
