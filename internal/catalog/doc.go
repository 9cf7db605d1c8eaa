// Package catalog holds the clip catalog: loading and validating it from
// YAML, selecting the next clip under exclusion constraints with a
// least-used bias, tracking usage, and spreading authors over sources.
//
// A Store is the only owner of usage state. Select never mutates;
// Acquire/Release lease clips between concurrent pipeline runs and
// MarkUsed commits a consumption.
package catalog
