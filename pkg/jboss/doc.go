// Package jboss discovers JBoss application server instances.
//
// Instances live as direct children of DefaultInstancePath. An entry is an
// instance when its name ends in an ASCII digit; the name without that digit
// is its application, so api_server1 and api_server2 are two instances of
// api_server. Nothing else about the entry is checked.
//
// Scan reads the directory once and returns an immutable Registry.
// Registry.FactDefinitions turns it into facts:
//
//	jboss_instances       => api_server1,api_server2,hello_world1
//	api_server_instances  => api_server1,api_server2
//	hello_world_instances => hello_world1
//
// A missing directory yields an empty registry and therefore no facts.
package jboss
