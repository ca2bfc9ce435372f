package cli

// Message constants
const (
	MsgRootShort = "A package manager for root add-on modules"
	MsgRootLong  = `kam manages self-contained add-on modules: it resolves dependency
groups from your project manifest, fetches module archives from local
or network repositories into a shared cache, and links them into
disposable environments.`

	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagForce   = "Refetch or recreate even when a cached result exists"

	MsgSyncShort   = "Resolve dependency groups and fetch their modules"
	MsgSyncLong    = `Sync expands the dependency groups of the project manifest, fetches
every module that is not yet in the cache, and optionally links the
results into a development environment.`
	MsgFlagDev     = "Link synchronized modules into a development environment"
	MsgFlagEnvDir  = "Environment directory"
	MsgSyncSummary = "%d fetched, %d cached, %d linked\n"

	MsgGetShort      = "Fetch a single module into the cache"
	MsgGetLong       = `Get fetches one module, given as id or id@version, into the cache
without consulting the project manifest.`
	MsgFlagSource    = "Source override: a repository directory, archive file or URL"
	MsgFlagLink      = "Link the fetched module into the environment"
	MsgPromptVersion = "No version given and none cached; which version of '%s'?"

	MsgResolveShort = "Print the expanded dependency groups"
	MsgResolveLong  = `Resolve expands every include directive and prints the flat
dependency list of each group, without fetching anything.`

	MsgCacheShort      = "Inspect or clear the module cache"
	MsgCacheStatsShort = "Print cache location and usage"
	MsgCacheClearShort = "Remove cached data"
	MsgCacheClearLong  = `Clear removes the whole cache, or a single subdirectory when one is
named. Cleared subdirectories are recreated empty; bundled templates
are restored on the next run.`

	MsgEnvShort       = "Manage disposable module environments"
	MsgEnvCreateShort = "Create a fresh environment"
	MsgEnvCreateLong  = `Create builds a new environment from the bundled template,
substituting project metadata into file names and contents. A
development environment carries a type marker; a runtime environment
does not.`
	MsgEnvInfoShort   = "Show an environment's type and layout"
	MsgFlagRuntime    = "Create a runtime environment instead of a development one"

	MsgSnippetShort = "Print the shell profile integration snippet"
	MsgSnippetLong  = `Snippet installs the kam profile fragment into the cache and prints
the line to add to your shell profile. The fragment exports the cache
root and puts the cache bin directory on PATH.`

	MsgVersionShort = "Print version information"
)
