package classifier

// sshdMarker identifies lines written by the SSH daemon.
const sshdMarker = "sshd"

// New login: a public key was accepted.
// Example: "Feb 19 14:32:05 nas sshd[1234]: Accepted publickey for admin from 203.0.113.9 port 51234 ssh2: ED25519 SHA256:..."
const acceptedPublicKeyMarker = "Accepted publickey for"

// Failed login: the client disconnected before authenticating.
// Example: "Feb 19 14:32:05 nas sshd[1234]: Connection closed by authenticating user root 198.51.100.4 port 40022 [preauth]"
const connectionClosedMarker = "Connection closed by authenticating user"
