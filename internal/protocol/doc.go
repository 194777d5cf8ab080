// Package protocol defines the JSON messages exchanged over an ACI
// connection.
//
// Every client message is a Request tagged by Cmd. The server answers
// most commands with one Response tagged by the matching Kind; create_db,
// write_to_disk, read_from_disk, event and any no_ack mutation get no
// answer. Events are pushed to their destination sessions as a Response of
// kind "event" and never answer a request.
//
// request_id is optional. The server echoes it so a client can tell apart
// concurrent requests that would otherwise share a (kind, key, db)
// signature.
package protocol
