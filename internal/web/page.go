package web

import "github.com/gofiber/fiber/v2"

// pageHTML is the consultation page. It talks to the JSON API only.
const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>MediScan</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; justify-content: center; padding: 2rem 0; }
  .card { max-width: 760px; width: 92%; background: #1e293b; border-radius: 12px; padding: 2rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 0.25rem; color: #f8fafc; }
  h2 { font-size: 1rem; text-transform: uppercase; letter-spacing: 0.08em; color: #64748b; margin: 1.5rem 0 0.5rem; }
  .subtitle { color: #94a3b8; margin-bottom: 1.5rem; }
  input[type=text], textarea { width: 100%; background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 0.6rem; color: #e2e8f0; font: inherit; }
  button { background: #38bdf8; color: #0f172a; border: 0; border-radius: 8px; padding: 0.55rem 1rem; font-weight: 600; cursor: pointer; margin-top: 0.5rem; }
  button:disabled { opacity: 0.5; cursor: default; }
  .panel { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; line-height: 1.55; }
  .panel ul, .panel ol { margin-left: 1.25rem; }
  .qa { margin-bottom: 0.75rem; }
  .qa b { color: #a5b4fc; }
  .error { color: #f87171; margin-top: 0.5rem; }
  .row { display: flex; gap: 0.5rem; flex-wrap: wrap; }
  audio { width: 100%; margin-top: 0.75rem; }
</style>
</head>
<body>
<div class="card">
  <h1>MediScan</h1>
  <p class="subtitle">Upload a medical report or scan and talk it through with the doctor.</p>

  <h2>Document</h2>
  <input type="file" id="file" accept=".pdf,.png,.jpg,.jpeg,.docx">
  <input type="text" id="symptoms" placeholder="Describe your symptoms (optional)" style="margin-top:0.5rem">
  <div class="row"><button id="upload">Review document</button><button id="restart">Start over</button></div>
  <div id="error" class="error"></div>

  <h2>Summary</h2>
  <div id="summary" class="panel">No document reviewed yet.</div>

  <h2>Questions</h2>
  <div id="qas"></div>
  <input type="text" id="question" placeholder="Ask the doctor a question">
  <button id="ask">Ask</button>

  <h2>Treatment</h2>
  <div class="row"><button id="treat">Suggest treatment</button><button id="read">Read aloud</button></div>
  <div id="treatment" class="panel" style="margin-top:0.5rem">No treatment plan yet.</div>
  <audio id="audio" controls hidden></audio>
</div>
<script>
let sessionId = null;
const $ = (id) => document.getElementById(id);

async function api(method, path, body) {
  const opts = { method, headers: {} };
  if (body instanceof FormData) { opts.body = body; }
  else if (body) { opts.body = JSON.stringify(body); opts.headers["Content-Type"] = "application/json"; }
  const res = await fetch(path, opts);
  if (res.headers.get("Content-Type")?.startsWith("audio/")) return res.blob();
  const env = await res.json();
  if (!env.success) throw new Error(env.message);
  return env.data;
}

function esc(s) { const d = document.createElement("div"); d.textContent = s; return d.innerHTML; }

function render(state) {
  if (!state) return;
  $("summary").innerHTML = state.summary_html || "No document reviewed yet.";
  $("treatment").innerHTML = state.treatment_html || "No treatment plan yet.";
  $("qas").innerHTML = (state.qas || []).map(q => '<div class="qa"><b>Q:</b> ' + esc(q.question) + '<br><b>A:</b> ' + esc(q.answer) + '</div>').join("");
}

async function run(fn) {
  $("error").textContent = "";
  try { await fn(); } catch (e) { $("error").textContent = e.message; }
}

async function start() { render(await api("POST", "/api/sessions")); }
async function ensure() { if (!sessionId) { const s = await api("POST", "/api/sessions"); sessionId = s.id; } }

$("upload").onclick = () => run(async () => {
  await ensure();
  const fd = new FormData();
  fd.append("file", $("file").files[0]);
  fd.append("symptoms", $("symptoms").value);
  render(await api("POST", "/api/sessions/" + sessionId + "/document", fd));
});
$("restart").onclick = () => run(async () => {
  if (sessionId) render(await api("POST", "/api/sessions/" + sessionId + "/reset"));
  $("audio").hidden = true;
});
$("ask").onclick = () => run(async () => {
  await ensure();
  await api("POST", "/api/sessions/" + sessionId + "/questions", { question: $("question").value, symptoms: $("symptoms").value });
  $("question").value = "";
  render(await api("GET", "/api/sessions/" + sessionId));
});
$("treat").onclick = () => run(async () => {
  await ensure();
  render(await api("POST", "/api/sessions/" + sessionId + "/treatment", { symptoms: $("symptoms").value }));
});
$("read").onclick = () => run(async () => {
  await ensure();
  const blob = await api("POST", "/api/sessions/" + sessionId + "/audio");
  $("audio").src = URL.createObjectURL(blob);
  $("audio").hidden = false;
  $("audio").play();
});
</script>
</body>
</html>`

func pageHandler(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(pageHTML)
}
