// Component for keeping short text blobs (as strings) with a fixed TTL and purging.
//
// Includes an interface and implementations using redis and in-process memory.
//
// The daemon keeps the classifier's full rationale for each evaluated message here, keyed by evaluation id, so moderators can pull it up on demand with the details command.
package cachestore
