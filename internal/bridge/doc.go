// Package bridge wires a config into a running bridge and drives
// deterministic simulations of it.
package bridge
