package main

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

// Simple HTML client for quick testing. Payloads travel percent-encoded,
// so encodeURIComponent/decodeURIComponent are the whole client codec.
const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Poembox</title>
<style>
  body { font-family: system-ui, -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 2rem; max-width: 40rem; }
  h1 { margin-bottom: 0.5rem; }
  #status { margin-bottom: 1rem; font-size: 0.9rem; color: #555; }
  #lines { padding: 0; list-style: none; }
  #lines li { padding: 0.25rem 0; border-bottom: 1px solid #ddd; font-family: Georgia, serif; }
  #input { width: 100%; padding: 0.5rem; font-size: 1rem; }
  button { padding: 0.5rem 1rem; margin: 0.25rem 0.25rem 0.25rem 0; }
  #qr { margin-top: 1rem; }
</style>
</head>
<body>
<h1>Poembox</h1>
<div id="status">Connecting…</div>
<ul id="lines"></ul>
<input id="input" placeholder="Your line…" hidden>
<div>
  <button id="ready" hidden>Ready</button>
  <button id="start" hidden>Start game</button>
  <button id="next" hidden>New round</button>
  <button id="share">Share (QR)</button>
</div>
<img id="qr" hidden>

<script>
(function() {
  var OP = { STAGE: 1, KICK: 2, START: 3, INPUT: 4, STEP: 5, HOST: 6,
             SETTINGS: 7, READY: 8, RESULTS: 9, REVEAL: 10, NEW_ROUND: 11,
             TERMINATING: 12 };

  var statusEl = document.getElementById('status');
  var linesEl = document.getElementById('lines');
  var inputEl = document.getElementById('input');
  var readyBtn = document.getElementById('ready');
  var startBtn = document.getElementById('start');
  var nextBtn = document.getElementById('next');

  var step = 0, last = 0, ready = false;

  var proto = (location.protocol === 'https:') ? 'wss://' : 'ws://';
  var wsPath = location.pathname.replace(/\/$/, '') + '/ws' + location.search;
  var ws = new WebSocket(proto + location.host + wsPath);

  function send(op, value) {
    ws.send(JSON.stringify({ op: op, data: encodeURIComponent(JSON.stringify(value || {})) }));
  }

  function showLines(lines) {
    linesEl.innerHTML = '';
    (lines || []).forEach(function(l) {
      var li = document.createElement('li');
      li.textContent = l;
      linesEl.appendChild(li);
    });
  }

  ws.onopen = function() { statusEl.textContent = 'Connected. Waiting for players…'; };

  ws.onmessage = function(event) {
    var msg = JSON.parse(event.data);
    if (msg.error) {
      statusEl.textContent = 'Rejected: ' + msg.error;
      return;
    }
    var data = msg.data ? JSON.parse(decodeURIComponent(msg.data)) : {};

    switch (msg.op) {
    case OP.HOST:
      startBtn.hidden = nextBtn.hidden = true;
      statusEl.textContent = 'Host: ' + data.userId;
      break;
    case OP.STAGE:
      if (data.stage === 'gettingReady') { startBtn.hidden = false; inputEl.hidden = readyBtn.hidden = true; showLines([]); }
      if (data.stage === 'results') { nextBtn.hidden = false; inputEl.hidden = readyBtn.hidden = true; }
      statusEl.textContent = 'Stage: ' + data.stage;
      break;
    case OP.STEP:
      step = data.step; last = data.last; ready = false;
      startBtn.hidden = true;
      if (!data.active) { statusEl.textContent = 'Spectating step ' + step + '/' + last; break; }
      showLines(data.lines);
      inputEl.value = data.input || '';
      inputEl.hidden = readyBtn.hidden = (step === 0);
      statusEl.textContent = step === 0 ? 'Get ready…' : 'Step ' + step + '/' + last;
      break;
    case OP.READY:
      statusEl.textContent = 'Ready: ' + data.ready + '/' + data.total;
      break;
    case OP.RESULTS:
      showLines(data.order.map(function(id) {
        return data.results[id].map(function(l) { return l.input; }).join(' / ');
      }));
      break;
    case OP.TERMINATING:
      statusEl.textContent = 'Server restarting, rejoin within ' + data.graceSeconds + 's';
      break;
    }
  };

  ws.onclose = function() { statusEl.textContent = 'Disconnected.'; };

  inputEl.oninput = function() {
    if (step > 0) { send(OP.INPUT, { step: step, input: inputEl.value, ready: false }); ready = false; }
  };
  readyBtn.onclick = function() {
    ready = !ready;
    send(OP.INPUT, { step: step, input: inputEl.value, ready: ready });
  };
  startBtn.onclick = function() { send(OP.START, {}); };
  nextBtn.onclick = function() { send(OP.NEW_ROUND, {}); };
  document.getElementById('share').onclick = function() {
    var img = document.getElementById('qr');
    img.src = location.pathname.replace(/\/$/, '') + '/qr';
    img.hidden = !img.hidden;
  };
})();
</script>
</body>
</html>
`

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))

		// No securityHeaders here: the inline test client needs its
		// script, which the default CSP would block.
		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write([]byte(indexHTML))
	}
}
