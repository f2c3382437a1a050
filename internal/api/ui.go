package api

import (
	"net/http"
)

const viewerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Semantic Zoom</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: monospace;
            background: #1a1a2e;
            color: #eee;
            height: 100vh;
            display: flex;
            flex-direction: column;
        }
        header {
            background: #16213e;
            padding: 12px 20px;
            border-bottom: 1px solid #0f3460;
            display: flex;
            justify-content: space-between;
            align-items: center;
        }
        header h1 { font-size: 16px; font-weight: normal; }
        #conn {
            padding: 4px 10px;
            border-radius: 4px;
            font-size: 12px;
        }
        #conn.connected { background: #1b4332; color: #95d5b2; }
        #conn.disconnected { background: #7f1d1d; color: #fca5a5; }
        #conn.connecting { background: #78350f; color: #fcd34d; }
        .controls {
            background: #16213e;
            padding: 10px 20px;
            border-bottom: 1px solid #0f3460;
            display: flex;
            gap: 18px;
            align-items: center;
            flex-wrap: wrap;
        }
        .control-group {
            display: flex;
            gap: 6px;
            align-items: center;
            font-size: 12px;
            color: #9ca3af;
        }
        .control-group select, .control-group input[type=file] {
            background: #1a1a2e;
            border: 1px solid #0f3460;
            border-radius: 4px;
            padding: 4px 8px;
            color: #eee;
            font-family: monospace;
            font-size: 12px;
        }
        .modes { display: flex; gap: 8px; }
        .modes label { display: flex; gap: 3px; align-items: center; cursor: pointer; }
        .value { min-width: 40px; color: #60a5fa; }
        main {
            flex: 1;
            display: flex;
            gap: 8px;
            padding: 8px;
            overflow: hidden;
        }
        .surface {
            background: #fff;
            border-radius: 4px;
            overflow: hidden;
            touch-action: none;
            cursor: grab;
        }
        .surface:active { cursor: grabbing; }
        .surface svg { width: 100%; height: 100%; display: block; }
        #graph { flex: 3; }
        #annotation { flex: 2; }
        footer {
            background: #16213e;
            padding: 8px 20px;
            border-top: 1px solid #0f3460;
            font-size: 12px;
            color: #9ca3af;
        }
    </style>
</head>
<body>
    <header>
        <h1>Semantic Zoom</h1>
        <span id="conn" class="connecting">connecting</span>
    </header>
    <div class="controls">
        <div class="control-group">
            <input type="file" id="file" accept=".xes,.csv">
        </div>
        <div class="control-group">
            <label for="level">Level</label>
            <input type="range" id="level" min="0" max="1" step="0.01" value="0.5">
            <span class="value" id="levelLabel">50%</span>
        </div>
        <div class="control-group">
            <span>Semantic</span>
            <div class="modes" id="mode">
                <label><input type="radio" name="mode" value="none" checked> none</label>
                <label><input type="radio" name="mode" value="frequent"> frequent</label>
                <label><input type="radio" name="mode" value="infrequent"> infrequent</label>
                <label><input type="radio" name="mode" value="long_time"> long time</label>
                <label><input type="radio" name="mode" value="short_time"> short time</label>
            </div>
        </div>
        <div class="control-group">
            <label for="threshold">Threshold</label>
            <input type="range" id="threshold" min="0" max="1" step="0.01" value="0.5">
            <span class="value" id="thresholdLabel">50%</span>
        </div>
    </div>
    <main>
        <div class="surface" id="graph" data-surface="graph"></div>
        <div class="surface" id="annotation" data-surface="annotation"></div>
    </main>
    <footer id="status">Upload an event log to begin.</footer>

    <script>
        const connEl = document.getElementById('conn');
        const statusEl = document.getElementById('status');
        const fileEl = document.getElementById('file');
        const levelEl = document.getElementById('level');
        const thresholdEl = document.getElementById('threshold');
        const modeEls = document.querySelectorAll('input[name=mode]');
        const surfaces = {
            graph: document.getElementById('graph'),
            annotation: document.getElementById('annotation')
        };
        let ws = null;
        let sessionId = null;
        let reconnectTimer = null;

        function setConn(state) {
            connEl.className = state;
            connEl.textContent = state;
        }

        function send(msg) {
            if (ws && ws.readyState === WebSocket.OPEN) ws.send(JSON.stringify(msg));
        }

        function apply(u) {
            switch (u.type) {
            case 'session':
                sessionId = u.id;
                Object.keys(surfaces).forEach(reportSize);
                break;
            case 'content':
                surfaces[u.surface].innerHTML = u.markup;
                break;
            case 'transform': {
                const g = surfaces[u.surface].querySelector('g.viewport');
                if (g) g.setAttribute('transform', u.value);
                break;
            }
            case 'controls':
                levelEl.value = u.level;
                thresholdEl.value = u.threshold;
                modeEls.forEach(function(r) { r.checked = r.value === u.mode; });
                document.getElementById('levelLabel').textContent = u.levelLabel;
                document.getElementById('thresholdLabel').textContent = u.thresholdLabel;
                break;
            case 'status':
                statusEl.textContent = u.text;
                break;
            }
        }

        function connect() {
            if (ws && ws.readyState === WebSocket.OPEN) return;
            setConn('connecting');
            const protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(protocol + '//' + location.host + '/ws/view');
            ws.onopen = function() { setConn('connected'); };
            ws.onmessage = function(msg) {
                try { apply(JSON.parse(msg.data)); } catch (e) { console.error('bad update', e); }
            };
            ws.onclose = function() {
                setConn('disconnected');
                sessionId = null;
                scheduleReconnect();
            };
            ws.onerror = function(err) { console.error('WebSocket error:', err); };
        }

        function scheduleReconnect() {
            if (reconnectTimer) return;
            reconnectTimer = setTimeout(function() {
                reconnectTimer = null;
                connect();
            }, 2000);
        }

        function local(el, e) {
            const r = el.getBoundingClientRect();
            return { x: e.clientX - r.left, y: e.clientY - r.top };
        }

        function reportSize(name) {
            const r = surfaces[name].getBoundingClientRect();
            send({ type: 'resize', surface: name, width: r.width, height: r.height });
        }

        Object.keys(surfaces).forEach(function(name) {
            const el = surfaces[name];
            el.addEventListener('pointerdown', function(e) {
                el.setPointerCapture(e.pointerId);
                const p = local(el, e);
                send({ type: 'pointerdown', surface: name, pointerId: e.pointerId, button: e.button, x: p.x, y: p.y });
            });
            el.addEventListener('pointermove', function(e) {
                if (!el.hasPointerCapture(e.pointerId)) return;
                const p = local(el, e);
                send({ type: 'pointermove', surface: name, pointerId: e.pointerId, x: p.x, y: p.y });
            });
            el.addEventListener('pointerup', function(e) {
                send({ type: 'pointerup', surface: name, pointerId: e.pointerId });
            });
            el.addEventListener('pointerleave', function() {
                send({ type: 'pointerleave', surface: name });
            });
            el.addEventListener('wheel', function(e) {
                e.preventDefault();
                const p = local(el, e);
                send({ type: 'wheel', surface: name, x: p.x, y: p.y, deltaY: e.deltaY });
            }, { passive: false });
            new ResizeObserver(function() { reportSize(name); }).observe(el);
        });

        levelEl.addEventListener('input', function() {
            send({ type: 'level', value: parseFloat(levelEl.value) });
        });
        thresholdEl.addEventListener('input', function() {
            send({ type: 'threshold', value: parseFloat(thresholdEl.value) });
        });
        modeEls.forEach(function(r) {
            r.addEventListener('change', function() {
                if (r.checked) send({ type: 'mode', mode: r.value });
            });
        });

        fileEl.addEventListener('change', function() {
            const file = fileEl.files[0];
            if (!file || !sessionId) return;
            const body = new FormData();
            body.append('file', file);
            fetch('/api/upload?session=' + encodeURIComponent(sessionId), { method: 'POST', body: body })
                .then(function(res) { return res.json(); })
                .then(function(data) { if (!data.ok) console.warn('upload:', data.error); })
                .catch(function() { statusEl.textContent = 'Network error'; })
                .finally(function() { fileEl.value = ''; });
        });

        connect();
    </script>
</body>
</html>`

// uiHandler serves the viewer page.
func uiHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(viewerHTML))
}
