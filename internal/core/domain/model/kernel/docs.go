// Package kernel holds the shared value objects of the order pipeline.
//
// UUID identifies orders across storage, the job queue, cache keys and the HTTP
// surface. Its zero value is invalid; obtain one through NewUUID, UUIDFromString
// or UUIDFromRaw.
package kernel
