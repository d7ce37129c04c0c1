package internal

// Version is the current lexiread release
const Version = "0.3.0"
