package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"incentiveScope/internal/model"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

// ResolveWeek picks the epoch to compute. An explicit week wins, then the week
// containing at; otherwise the last completed week before now.
func ResolveWeek(week uint64, at string, now time.Time) (uint64, error) {
	if week > 0 {
		return week, nil
	}
	if strings.TrimSpace(at) != "" {
		ts, err := ParseTimestamp(at)
		if err != nil {
			return 0, fmt.Errorf("parse at: %w", err)
		}
		return ts / model.WeekSeconds, nil
	}
	current := model.WeekOf(now)
	if current == 0 {
		return 0, fmt.Errorf("no completed week before %s", now.UTC().Format(time.RFC3339))
	}
	return current - 1, nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
