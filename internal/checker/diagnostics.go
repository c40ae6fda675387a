package checker

import (
	"bufio"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	// file(line,col): Error BP5001: This assertion might not hold.
	// Newer releases print "Error: this assertion could not be proved".
	failureLine = regexp.MustCompile(`^(.+)\((\d+),(\d+)\): (?:Error BP5001: This assertion might not hold\.?|Error: this assertion could not be proved)\s*$`)

	summaryLine = regexp.MustCompile(`^Boogie program verifier finished with (\d+) verified, (\d+) errors?(.*)$`)
	summaryTail = regexp.MustCompile(`(\d+) (time outs?|out of memory|out of resource|solver exceptions?|inconclusive)`)
)

var errNoSummary = errors.New("no verifier summary line in output")

// ParseReport extracts the failed assertion lines and the summary counts
// from the textual output of Boogie. Output without a summary line is an
// error: an absent summary usually means the verifier never ran (parse or
// type errors), and reading it as "nothing failed" would prove everything.
func ParseReport(output string) (*Report, error) {
	report := &Report{
		Failed: make(map[int]bool),
		Output: output,
	}

	found := false
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if m := failureLine.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, &CheckerError{Output: output, Err: err}
			}
			report.Failed[n] = true
			continue
		}

		if m := summaryLine.FindStringSubmatch(line); m != nil {
			found = true
			report.Verified, _ = strconv.Atoi(m[1])
			report.Errors, _ = strconv.Atoi(m[2])
			for _, extra := range summaryTail.FindAllStringSubmatch(m[3], -1) {
				if n, _ := strconv.Atoi(extra[1]); n > 0 {
					report.Incomplete = true
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &CheckerError{Output: output, Err: err}
	}

	if !found {
		return nil, &CheckerError{Output: output, Err: errNoSummary}
	}
	return report, nil
}
