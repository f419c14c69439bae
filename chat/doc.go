// Package chat listens to Twitch IRC and turns messages into system
// activity: session stats, the chat replay ring, the clip-spam detector, and
// the persistent event log all feed from here. It also dispatches the viewer
// command set (!scene, !stats, !uptime, !so, !sound, !chaos, !clip), with
// moderator gating on the commands that touch the mixer.
//
// Credentials: the IRC client requires a bot username and an OAuth token
// with chat:read/chat:edit scopes. With no credentials configured the
// listener logs once and exits; the rest of the system keeps running.
package chat
