// Triage posts an AI-generated triage checklist on a GitHub issue.
//
// It reads the issue from the workflow environment, picks a Gemini model
// that supports generateContent (preferring gemini-2.5-flash, then any
// flash, then any pro), asks it for an action plan and comments the result
// on the issue.
//
// Usage:
//
//	triage run                        # triage the issue described by env
//	triage run --repo o/r --issue 12  # fetch and triage a specific issue
//	triage run --dry-run              # print the checklist without posting
//	triage models list                # show models visible to the key
//	triage workflow init              # write the GitHub Actions workflow
//
// Required environment: GEMINI_API_KEY and GITHUB_TOKEN.
package main
