// Command motionctl drives a devtools server from the terminal.
//
// Usage:
//
//	motionctl page page.html
//	motionctl run -e 'animate("#box", { opacity: [0, 1] }, { duration: 0.4 })'
//	motionctl animate '.item' -k 'opacity=0,1;x=0,120' --duration 0.5 --stagger 0.1 --wait
//	motionctl scene scenes/intro.yaml
//	motionctl watch
//	motionctl ease circInOut
//
// The server URL comes from --server or MOTIONCTL_SERVER.
package main
