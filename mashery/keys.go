package mashery

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// NoMember is the group that keys without a member are put in
const NoMember = "None"

const maxLineBytes = 64 * 1024 * 1024

// MemberID is a Mashery member id, which exports write as either a number or a string
type MemberID string

func (i *MemberID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*i = MemberID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("member id must be a number or string: %w", err)
	}
	*i = MemberID(s)
	return nil
}

// Member is the Mashery user a key belongs to
type Member struct {
	ID       MemberID `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
}

// Key is a key as exported from Mashery
type Key struct {
	APIKey           string  `json:"apikey"`
	Status           string  `json:"status"`
	Created          string  `json:"created"`
	RateLimitCeiling int     `json:"rate_limit_ceiling"`
	Member           *Member `json:"member"`
}

// ReadKeys reads a keys export, where every line is a JSON array holding one page of keys
func ReadKeys(r io.Reader) ([]*Key, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	keys := make([]*Key, 0, 1000)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}

		var page []*Key
		if err := json.Unmarshal(b, &page); err != nil {
			return nil, fmt.Errorf("error parsing keys on line %d: %w", line, err)
		}
		keys = append(keys, page...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading keys: %w", err)
	}

	return keys, nil
}

// GroupByMember groups keys by the id of their member
func GroupByMember(keys []*Key) map[string][]*Key {
	return lo.GroupBy(keys, func(k *Key) string {
		if k.Member == nil || k.Member.ID == "" {
			slog.Warn("key does not have a member", "comp", "mashery", "apikey", k.APIKey)
			return NoMember
		}
		return string(k.Member.ID)
	})
}

// User is a user in the format Bonobo's migrate endpoint expects
type User struct {
	ID    string     `json:"id"`
	Name  string     `json:"name,omitempty"`
	Email string     `json:"email,omitempty"`
	Keys  []*UserKey `json:"keys"`
}

// UserKey is a key of a Bonobo user
type UserKey struct {
	Key            string `json:"key"`
	Status         string `json:"status"`
	CreatedAt      int64  `json:"createdAt"` // epoch millis
	RequestsPerDay int    `json:"requestsPerDay,omitempty"`
}

// Convert converts grouped keys into Bonobo users, ordered by member id
func Convert(groups map[string][]*Key) ([]*User, error) {
	ids := lo.Keys(groups)
	slices.SortFunc(ids, compareIDs)

	users := make([]*User, 0, len(ids))
	for _, id := range ids {
		user := &User{ID: id, Keys: make([]*UserKey, 0, len(groups[id]))}

		for _, k := range groups[id] {
			if user.Name == "" && k.Member != nil {
				user.Name = k.Member.Username
				user.Email = k.Member.Email
			}

			created, err := parseCreated(k.Created)
			if err != nil {
				return nil, fmt.Errorf("error converting key %s: %w", k.APIKey, err)
			}

			user.Keys = append(user.Keys, &UserKey{
				Key:            k.APIKey,
				Status:         k.Status,
				CreatedAt:      created,
				RequestsPerDay: k.RateLimitCeiling,
			})
		}
		users = append(users, user)
	}
	return users, nil
}

// numeric ids sort numerically and before anything else, keys without a member always come last
func compareIDs(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == NoMember:
		return 1
	case b == NoMember:
		return -1
	}

	an, aErr := strconv.ParseInt(a, 10, 64)
	bn, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		return cmp.Compare(an, bn)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

func parseCreated(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid created time '%s'", s)
	}
	return t.UnixMilli(), nil
}
