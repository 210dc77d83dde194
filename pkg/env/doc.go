// pkg/env/doc.go

/*
Package env describes the toolchain environment a build step runs in.

Toolchain locations (CARGO_HOME, RUSTUP_HOME, PATH) are carried in an explicit
Environment value that is created fresh for each platform and handed to every
command. The process environment is never modified, so two platforms built in
the same run cannot see each other's toolchain settings.

Basic Usage:

	e := env.New(env.Options{Workspace: "/src/capsule"})
	e.UseToolchain("stable-x86_64-unknown-linux-gnu")

	cmd := e.Cargo("build", "--release")
	cmd.Env // CARGO_HOME=/src/capsule/.cargo ...
*/
package env
