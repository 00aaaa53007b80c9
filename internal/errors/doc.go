// Package errors maps shipyard failures to stable codes.
//
// Every failure a request can hit has a registered code, a category and the
// HTTP status it is answered with:
//
//	E101-E104  resolve   malformed reference, module load, missing export, untrusted export
//	E201-E204  decode    malformed multipart, incomplete body, upload too large or of a refused type
//	E301       invoke    the action returned an error or panicked
//	E401-E402  stream    render failure, transport closed
//	E501-E502  config    invalid configuration, listener failure
//
// Classify turns any error into an *Error by matching the sentinels of the
// pkg/ packages; WriteJSON renders it as the {"error","code"} body the
// client runtime expects:
//
//	if err != nil {
//	    errors.WriteJSON(w, errors.Classify(err))
//	    return
//	}
//
// Format renders the same error for a terminal, for the CLI.
package errors
