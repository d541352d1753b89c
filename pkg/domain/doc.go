/*
Package domain holds the core types of the release engine.

It defines the facts gathered about a release in progress (ReleaseState),
the discovery result produced by scanning pull requests and issues
(ReleaseIntent), the per-cycle outcome reports, the cycle state machine
states and the error taxonomy used to decide how far a failure propagates.

The package has no dependencies on adapters; every collaborator is expressed
in pkg/ports.
*/
package domain
