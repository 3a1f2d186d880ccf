package tracker

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cptracker-backend/lib/platforms/atcoder"
	"cptracker-backend/lib/platforms/codeforces"
)

// division a contest falls into when its name doesn't say
const DefaultDivision = 2

type ContestMeta struct {
	EndTime  int64
	Division int64
}

// Registry maps contest ids to end times and divisions. Built once per
// run from a bulk contest listing and read-only afterwards; unrated
// contests never make it in.
type Registry struct {
	contests map[string]ContestMeta
}

func (r *Registry) Get(id string) (ContestMeta, bool) {
	meta, ok := r.contests[id]
	return meta, ok
}

func (r *Registry) Known(id string) bool {
	_, ok := r.contests[id]
	return ok
}

func (r *Registry) Len() int {
	return len(r.contests)
}

// Ids returns the registered contest ids in unspecified order.
func (r *Registry) Ids() []string {
	ids := make([]string, 0, len(r.contests))
	for id := range r.contests {
		ids = append(ids, id)
	}
	return ids
}

func divisionFromName(name string) int64 {
	lower := strings.ToLower(name)
	for div := int64(1); div <= 4; div++ {
		if strings.Contains(lower, fmt.Sprintf("div. %d", div)) {
			return div
		}
	}
	return DefaultDivision
}

func NewCodeforcesRegistry(contests []codeforces.Contest, unrated map[int64]bool) *Registry {
	reg := &Registry{contests: map[string]ContestMeta{}}
	for _, c := range contests {
		if c.Id == 0 || c.StartTimeSeconds == 0 || c.DurationSeconds == 0 {
			slog.Warn("skipping malformed contest entry", "id", c.Id, "name", c.Name)
			continue
		}
		if unrated[c.Id] {
			continue
		}
		reg.contests[strconv.FormatInt(c.Id, 10)] = ContestMeta{
			EndTime:  c.StartTimeSeconds + c.DurationSeconds,
			Division: divisionFromName(c.Name),
		}
	}
	return reg
}

func NewAtcoderRegistry(contests []atcoder.Contest) *Registry {
	reg := &Registry{contests: map[string]ContestMeta{}}
	for _, c := range contests {
		if c.Id == "" || c.StartEpochSecond == 0 {
			slog.Warn("skipping malformed contest entry", "id", c.Id, "title", c.Title)
			continue
		}
		reg.contests[c.Id] = ContestMeta{
			EndTime:  c.StartEpochSecond + c.DurationSecond,
			Division: divisionFromName(c.Title),
		}
	}
	return reg
}

// ReadUnratedIds reads a newline-delimited list of contest ids to keep
// out of the registry. A missing file just means nothing is excluded.
func ReadUnratedIds(path string) (map[int64]bool, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[int64]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ids := map[int64]bool{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			slog.Warn("skipping malformed unrated contest id", "line", line)
			continue
		}
		ids[id] = true
	}
	return ids, scanner.Err()
}
