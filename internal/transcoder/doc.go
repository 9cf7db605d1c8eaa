// Package transcoder runs the external-tool stages of the clip pipeline:
// downloading with yt-dlp, trimming, vertical reformatting and subtitle
// burning with ffmpeg, and poster frame extraction.
//
// Tools are invoked through a Runner with an argument vector; the argument
// builders on Options are pure and tested independently. A stage succeeds
// only if the tool exits 0 and its output file exists with data.
package transcoder
