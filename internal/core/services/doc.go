// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IngestService runs the chunk/embed/index pipeline with per-chunk
// atomicity across both indexes. RetrievalService fans a query out to
// both indexes and fuses the rankings with Reciprocal Rank Fusion.
package services
