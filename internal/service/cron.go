package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cronSpec 6 字段 (秒 分 时 日 月 周) 的简化匹配器. 每个字段支持
// "*", 数字, 逗号列表, 区间 a-b, 以及步长 */n 与 a-b/n.
// 5 字段表达式自动补秒 0.
type cronSpec struct {
	expr   string
	fields [6][]cronPart
}

type cronPart struct {
	lo, hi, step int
}

var cronBounds = [6][2]int{{0, 59}, {0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}

func NormalizeCron(expr string) string {
	parts := strings.Fields(expr)
	if len(parts) == 5 {
		return "0 " + strings.Join(parts, " ")
	}
	return strings.Join(parts, " ")
}

func parseCron(expr string) (*cronSpec, error) {
	norm := NormalizeCron(expr)
	fields := strings.Fields(norm)
	if len(fields) != 6 {
		return nil, fmt.Errorf("cron %q: expected 5 or 6 fields", expr)
	}
	spec := &cronSpec{expr: norm}
	for i, f := range fields {
		for _, item := range strings.Split(f, ",") {
			p, err := parseCronPart(item, cronBounds[i][0], cronBounds[i][1])
			if err != nil {
				return nil, fmt.Errorf("cron %q field %d: %w", expr, i+1, err)
			}
			spec.fields[i] = append(spec.fields[i], p)
		}
	}
	return spec, nil
}

func parseCronPart(s string, min, max int) (cronPart, error) {
	p := cronPart{lo: min, hi: max, step: 1}
	rng := s
	if i := strings.Index(s, "/"); i >= 0 {
		step, err := strconv.Atoi(s[i+1:])
		if err != nil || step <= 0 {
			return p, fmt.Errorf("bad step %q", s)
		}
		p.step, rng = step, s[:i]
	}
	switch {
	case rng == "*":
	case strings.Contains(rng, "-"):
		a, b, _ := strings.Cut(rng, "-")
		lo, err1 := strconv.Atoi(a)
		hi, err2 := strconv.Atoi(b)
		if err1 != nil || err2 != nil || lo > hi {
			return p, fmt.Errorf("bad range %q", s)
		}
		p.lo, p.hi = lo, hi
	default:
		n, err := strconv.Atoi(rng)
		if err != nil {
			return p, fmt.Errorf("bad value %q", s)
		}
		p.lo, p.hi = n, n
		if p.step != 1 {
			p.hi = max // n/step 表示从 n 开始每 step 一次
		}
	}
	if p.lo < min || p.hi > max {
		return p, fmt.Errorf("%q out of range [%d,%d]", s, min, max)
	}
	return p, nil
}

func (c *cronSpec) matches(t time.Time) bool {
	vals := [6]int{t.Second(), t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, parts := range c.fields {
		ok := false
		for _, p := range parts {
			if vals[i] >= p.lo && vals[i] <= p.hi && (vals[i]-p.lo)%p.step == 0 {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
