// Command clipper cuts short audio clips out of online videos and publishes
// them to a catalog.
//
// A typical session:
//
//	clipper config init
//	clipper catalog put-category sad --name en=Sad --name ja=悲しい
//	clipper batch run clips.txt
//	clipper history
//
// Individual stages are available under `clipper clip`, and `clipper serve`
// exposes the same operations over HTTP.
package main
