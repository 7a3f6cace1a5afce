// Package pipeline turns a pending job into a rendered vertical video.
//
// Runner.Run walks one job through the render stages, recording status and
// progress in the job store after each transition:
//
//	generating_script  15%  story.Generator output saved as JSON
//	generating_images  30%  one image per scene (scene_NN.png)
//	generating_voice   45%  one narration clip per scene (scene_NN.mp3)
//	generating_video   60%  one ffmpeg clip per scene (clip_NN.mp4)
//	rendering          85%  concat, subtitles, resize, publish
//	completed         100%  output path recorded
//
// Any failure marks the job failed with the error message and keeps the last
// progress value. A Notifier, when set, hears about completed and failed jobs.
// Worker polls the store and runs pending jobs one at a time.
package pipeline
