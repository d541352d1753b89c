/*
Package ports defines the driven ports (interfaces) of the release engine.

These interfaces decouple the orchestration core from GitHub, PyPI, Fedora
tooling, Redis and SQLite, so the engine can be exercised against fakes and
the adapters can be swapped per deployment.

# Key Interfaces

  - PagingSource: cursor-paginated listing of merged pull requests or open issues.
  - ReleaseRegistry: the source-hosting release record (latest, create, notes, archive).
  - PackageIndex: latest published package version and build-and-upload.
  - Distribution: the multi-branch distribution updater.
  - CommentSink: receives the batched progress notes of a cycle.
  - Executor: runs external commands with caller-chosen fatality.
  - JobQueue and DistributedLocker: hand-off and coordination for queue workers.
  - Ledger: optional persistent history of cycles.
*/
package ports
