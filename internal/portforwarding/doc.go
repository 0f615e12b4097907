// Package portforwarding opens local tunnels to a debug port inside a
// target and keeps track of whether they are still alive.
//
// Before a tunnel is started the local port is checked. A port held by a
// forwarder left over from an earlier session can be reclaimed after the
// user confirms, and the answer is no when nobody can be asked; a port held
// by anything else is reported as a conflict.
// Runtimes that can reach the port directly (a container publishing it on
// the host) get a passthrough handle with no tunnel behind it.
//
// A tunnel that dies within the grace window after becoming ready is
// reported as a setup failure, since that usually means the remote side
// refused the connection.
package portforwarding
