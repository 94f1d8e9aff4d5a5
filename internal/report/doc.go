// Package report renders bring-up summaries and publication history
// for human readers, in plain text for the terminal and in markdown
// for documentation.
package report
