package process

import "time"

// DefaultGitTimeout bounds each git call.
const DefaultGitTimeout = time.Minute

// Identity is the author recorded on the initial commit.
type Identity struct {
	Name  string
	Email string
}

// DefaultIdentity is used when config leaves git.author_* empty.
var DefaultIdentity = Identity{Name: "stackforge", Email: "stackforge@localhost"}

// GitInit creates an empty repository in dir.
func GitInit(dir string, timeout time.Duration) Command {
	return Command{Path: "git", Args: []string{"init", "-q"}, Dir: dir, Timeout: timeout}
}

// GitAddAll stages the whole working tree.
func GitAddAll(dir string, timeout time.Duration) Command {
	return Command{Path: "git", Args: []string{"add", "-A"}, Dir: dir, Timeout: timeout}
}

// GitCommit records the initial commit with a fixed message. The identity is
// handed over through git's environment variables, never as arguments.
func GitCommit(dir, message string, id Identity, timeout time.Duration) Command {
	if id.Name == "" {
		id.Name = DefaultIdentity.Name
	}
	if id.Email == "" {
		id.Email = DefaultIdentity.Email
	}
	return Command{
		Path: "git",
		Args: []string{"-c", "commit.gpgsign=false", "commit", "-q", "--no-verify", "-m", message},
		Dir:  dir,
		Env: []string{
			"GIT_AUTHOR_NAME=" + id.Name,
			"GIT_AUTHOR_EMAIL=" + id.Email,
			"GIT_COMMITTER_NAME=" + id.Name,
			"GIT_COMMITTER_EMAIL=" + id.Email,
		},
		Timeout: timeout,
	}
}
