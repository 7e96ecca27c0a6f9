// Package cache provides kv.Cache implementations: Local keeps records in
// process memory, Redis shares them between server instances.
package cache
