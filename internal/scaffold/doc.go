// Package scaffold turns a validated project request into the ordered
// phases that create-project applies: the project root, the directory
// tree, generated and copied files, dependency installs, and the initial
// git commit. Everything that can be checked before touching the disk is
// checked while the plan is built.
package scaffold
