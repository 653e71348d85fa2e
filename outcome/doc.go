// Package outcome holds the per-scenario result record and the rules that
// turn comparison counts into a verdict.
//
// A scenario is PASS when every compared row matches, WARN when at least the
// warn percentage (95 by default) matches, FAIL otherwise, and INFO when no
// rows were compared. ERROR and TIMEOUT mark scenarios that never produced
// counts.
package outcome
