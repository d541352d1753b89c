/*
Package releasebot publishes Python projects from GitHub to PyPI and Fedora.

A maintainer merges a pull request titled "<version> release" (or "new minor
release") and the bot does the rest:

 1. creates the GitHub release and fills its notes from CHANGELOG.md;
 2. builds the sdist and wheels and uploads them to PyPI;
 3. updates the Fedora dist-git branches and submits the builds.

Progress is posted as one comment on the pull request. Every step checks the
live version of its target first, so a crashed cycle is simply run again.

An open issue titled "<version> release" can instead ask the bot for a release
pull request, with the changelog and version files prepared.

# Usage

	cfg, err := config.Load("conf.yaml")
	if err != nil {
		log.Fatal(err)
	}

	bot, err := releasebot.New(ctx, cfg, releasebot.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	defer bot.Close()

	engine, err := bot.Engine()
	if err != nil {
		log.Fatal(err)
	}
	runner.NewPoller(engine, cfg.Interval()).Run(ctx)

The same engines are driven per webhook delivery by runner.Worker, using
bot.Factory().
*/
package releasebot
