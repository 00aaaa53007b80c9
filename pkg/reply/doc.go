// Package reply decodes the arguments of a server action call.
//
// Clients send arguments as a multipart/form-data body. Each part becomes one
// positional argument, in body order:
//
//   - a part with a filename is stored through an upload.Store and arrives
//     as *upload.File
//   - a part with Content-Type application/json arrives as its decoded value
//   - any other part arrives as a string
//
// Parts named with the "$B" prefix are binary payloads. They are not
// arguments themselves; a string argument (or a string anywhere inside a JSON
// argument) equal to the part name is replaced by the *upload.File once the
// terminating boundary has been read.
//
// A body with Content-Type application/json is accepted as well: it must be
// a JSON array, and its elements are the arguments.
//
// Decode reads parts as they arrive and never buffers the whole body.
package reply
